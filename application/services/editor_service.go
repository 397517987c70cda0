package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/application/sagas"
	"cmseditor/domain/config"
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/validators"
	"cmseditor/domain/core/valueobjects"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/extensions"
)

// cancelAction is reported to the browser after an unrecoverable error
const cancelAction = "cancel"

// EditorServiceDeps groups the collaborators of the editor service
type EditorServiceDeps struct {
	Repo      ports.ResourceRepository
	Sessions  ports.SessionStore
	Locks     ports.LockService
	Editors   ports.EditorRegistry
	Schemas   ports.SchemaRegistry
	TempFiles *TempFileManager
	Commit    *sagas.CommitSaga
	Hooks     *extensions.HookManager
	Publisher ports.EventPublisher
	Config    *config.DomainConfig
	Clock     ports.Clock
	Logger    *zap.Logger
}

// EditorService drives the editor state machine. Every request works on the
// temporary copy of a resource; the original is only written by a save,
// through the commit saga.
type EditorService struct {
	repo      ports.ResourceRepository
	sessions  ports.SessionStore
	locks     ports.LockService
	editors   ports.EditorRegistry
	schemas   ports.SchemaRegistry
	tempFiles *TempFileManager
	commit    *sagas.CommitSaga
	hooks     *extensions.HookManager
	publisher ports.EventPublisher
	validator *validators.ContentValidator
	config    *config.DomainConfig
	clock     ports.Clock
	logger    *zap.Logger
}

// NewEditorService creates a new editor service
func NewEditorService(deps EditorServiceDeps) *EditorService {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &EditorService{
		repo:      deps.Repo,
		sessions:  deps.Sessions,
		locks:     deps.Locks,
		editors:   deps.Editors,
		schemas:   deps.Schemas,
		tempFiles: deps.TempFiles,
		commit:    deps.Commit,
		hooks:     deps.Hooks,
		publisher: deps.Publisher,
		validator: validators.NewContentValidator(cfg),
		config:    cfg,
		clock:     clock,
		logger:    deps.Logger,
	}
}

// editContext is the state of one request
type editContext struct {
	req      EditorRequest
	original *entities.Resource
	temp     *entities.Resource
	session  *entities.EditSession
	kind     editor.Kind

	text   string
	doc    *aggregates.Document
	decl   aggregates.TemplateElements
	schema *aggregates.Schema

	locale  valueobjects.Locale
	element string
	dirty   bool
	errors  *pkgerrors.ValidationErrors
}

// Handle performs one editor action. Errors the user can act upon are
// returned as they are; anything else yields an error view with the action
// reset to cancel, leaving the lock in place.
func (s *EditorService) Handle(ctx context.Context, req EditorRequest) (*EditorView, error) {
	if req.UserID == "" {
		return nil, pkgerrors.NewUnauthorizedError("editing requires a signed in user")
	}
	if req.Action == editor.ActionError {
		return &EditorView{
			State:    editor.StateError,
			Action:   cancelAction,
			Resource: req.Resource,
			TempFile: req.TempFile,
			BackLink: req.BackLink,
		}, nil
	}

	view, err := s.handle(ctx, req)
	if err != nil && unrecoverable(err) {
		s.logger.Error("Editor action failed",
			zap.String("resource", req.Resource),
			zap.String("action", req.Action.String()),
			zap.String("userID", req.UserID),
			zap.Error(err),
		)
		return &EditorView{
			State:    editor.StateError,
			Action:   cancelAction,
			Resource: req.Resource,
			TempFile: req.TempFile,
			BackLink: req.BackLink,
			Message:  err.Error(),
		}, err
	}
	return view, err
}

func (s *EditorService) handle(ctx context.Context, req EditorRequest) (*EditorView, error) {
	if req.Resource == "" {
		return nil, pkgerrors.NewValidationError("resource is required")
	}
	if entities.IsTempPath(req.Resource, s.config.TempFilePrefix) {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("names starting with '%s' are reserved for temporary files", s.config.TempFilePrefix))
	}

	var original *entities.Resource
	var err error
	if req.Action == editor.ActionNew {
		req.BackLink = firstNonEmpty(req.BackLink, req.NewLink)
		original, err = s.create(ctx, req)
	} else {
		original, err = s.repo.GetByPath(ctx, req.Resource)
	}
	if err != nil {
		return nil, err
	}
	if original.IsTemporary() {
		return nil, pkgerrors.NewValidationError("temporary files cannot be edited")
	}

	key := entities.SessionKey{ResourceID: original.ID(), UserID: req.UserID}
	session, err := s.sessions.Get(ctx, key)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get edit session", err)
	}

	switch req.Action {
	case editor.ActionExit, editor.ActionCleanup, editor.ActionCloseBrowser:
		return s.close(ctx, original, session, req, editor.ResultState(req.Action))
	}

	ec, err := s.prepare(ctx, req, original, session)
	if err != nil {
		return nil, err
	}
	if err := s.applyBuffer(ec); err != nil {
		return nil, err
	}
	if ec.kind.Localized() {
		if err := s.selectTarget(ec); err != nil {
			return nil, err
		}
	}

	state := editor.ResultState(req.Action)
	switch req.Action {
	case editor.ActionDefault, editor.ActionNew, editor.ActionShow, editor.ActionChangeElement, editor.ActionPreview:
	case editor.ActionDeleteLocale:
		err = s.deleteLocale(ctx, ec)
	case editor.ActionCopyLocale:
		err = s.copyLocale(ec)
	case editor.ActionCheck:
		ec.errors = s.validate(ec)
	case editor.ActionAddElement, editor.ActionRemoveElement, editor.ActionElementUp, editor.ActionElementDown:
		err = s.changeStructure(ec)
	case editor.ActionConfirmCorrect:
		if ec.schema == nil || !ec.schema.NeedsCorrection(ec.doc) {
			state = editor.StateShow
		}
	case editor.ActionCorrectConfirmed:
		if ec.schema != nil && ec.schema.Correct(ec.doc) {
			ec.dirty = true
		}
	case editor.ActionSave, editor.ActionSaveExit, editor.ActionSaveAction:
		return s.save(ctx, ec)
	case editor.ActionExit, editor.ActionCleanup, editor.ActionCloseBrowser, editor.ActionError:
		// handled above
	}
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, ec); err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, ec); err != nil {
		return nil, err
	}
	return s.render(ec, state), nil
}

// create stores a new, empty resource for ActionNew
func (s *EditorService) create(ctx context.Context, req EditorRequest) (*entities.Resource, error) {
	exists, err := s.repo.Exists(ctx, req.Resource)
	if err != nil {
		return nil, pkgerrors.NewFileAccessError(req.Resource, err)
	}
	if exists {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("resource '%s' already exists", req.Resource))
	}

	var content []byte
	if req.ResourceType == entities.TypeXMLContent {
		schema, err := s.schemas.Get(req.Schema)
		if err != nil {
			return nil, err
		}
		doc, err := schema.NewContent(s.defaultLocales(nil).First())
		if err != nil {
			return nil, err
		}
		if content, err = doc.Bytes(); err != nil {
			return nil, err
		}
	}

	resource, err := entities.NewResource(req.Resource, req.ResourceType, content, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.ResourceType == entities.TypeXMLContent {
		resource.SetProperty(entities.PropertySchema, req.Schema)
	}
	if err := s.repo.Save(ctx, resource); err != nil {
		return nil, pkgerrors.NewFileAccessError(req.Resource, err)
	}

	s.logger.Info("Created resource",
		zap.String("resource", resource.Path()),
		zap.String("type", string(resource.Type())),
		zap.String("userID", req.UserID),
	)
	return resource, nil
}

// prepare opens the session if needed and loads the temporary file
func (s *EditorService) prepare(ctx context.Context, req EditorRequest, original *entities.Resource, session *entities.EditSession) (*editContext, error) {
	ec := &editContext{req: req, original: original, session: session}
	if session == nil {
		if err := s.open(ctx, ec); err != nil {
			return nil, err
		}
	} else {
		session.Merge(entities.SessionUpdate{BackLink: req.BackLink, DirectEdit: req.DirectEdit}, s.clock.Now())
		kind, err := editor.ParseKind(session.Kind)
		if err != nil {
			kind = editor.KindForResourceType(original.Type())
		}
		ec.kind = kind
	}
	if !ec.kind.Supports(req.Action) {
		return nil, pkgerrors.ErrActionNotSupported.Clone().
			WithDetail("action", req.Action.String()).
			WithDetail("kind", ec.kind.String())
	}
	if req.Modified != nil {
		ec.session.Merge(entities.SessionUpdate{Modified: req.Modified}, s.clock.Now())
	}

	temp, err := s.tempFiles.Read(ctx, original, req.UserID)
	if err != nil {
		return nil, err
	}
	ec.temp = temp
	if err := s.load(ec); err != nil {
		return nil, err
	}
	return ec, nil
}

// open starts editing: it picks the editor, checks the lock once and
// creates the temporary file and the session record
func (s *EditorService) open(ctx context.Context, ec *editContext) error {
	req := ec.req
	desc := s.selectEditor(ec.original.Type(), req)
	if !desc.Kind.Supports(req.Action) {
		return pkgerrors.ErrActionNotSupported.Clone().
			WithDetail("action", req.Action.String()).
			WithDetail("kind", desc.Kind.String())
	}
	ec.kind = desc.Kind

	lockAcquired, err := s.checkLock(ctx, ec.original.Path(), req.UserID)
	if err != nil {
		return err
	}

	temp, err := s.tempFiles.Create(ctx, ec.original, req.UserID)
	if err != nil {
		s.releaseAfterFailedOpen(ctx, ec.original.Path(), req.UserID, lockAcquired)
		return err
	}

	now := s.clock.Now()
	key := entities.SessionKey{ResourceID: ec.original.ID(), UserID: req.UserID}
	session, err := entities.NewEditSession(key, ec.original.Path(), now)
	if err != nil {
		return err
	}
	session.Merge(entities.SessionUpdate{
		TempFilePath: temp.Path(),
		BackLink:     req.BackLink,
		DirectEdit:   req.DirectEdit,
		EditorName:   desc.Name,
		Kind:         desc.Kind.String(),
		LockAcquired: entities.Bool(lockAcquired),
	}, now)
	if err := s.sessions.Save(ctx, session); err != nil {
		s.releaseAfterFailedOpen(ctx, ec.original.Path(), req.UserID, lockAcquired)
		return pkgerrors.NewDatabaseError("save edit session", err)
	}
	ec.session = session

	s.logger.Info("Opened edit session",
		zap.String("resource", ec.original.Path()),
		zap.String("userID", req.UserID),
		zap.String("editor", desc.Name),
		zap.Bool("lockAcquired", lockAcquired),
	)
	s.publish(ctx, events.NewEditSessionOpened(ec.original.ID(), ec.original.Path(), req.UserID,
		desc.Name, session.DirectEdit, now))
	return nil
}

func (s *EditorService) releaseAfterFailedOpen(ctx context.Context, path, userID string, lockAcquired bool) {
	if !lockAcquired {
		return
	}
	if err := s.locks.Release(ctx, path, userID); err != nil {
		s.logger.Warn("Failed to release lock after failed open",
			zap.String("resource", path),
			zap.Error(err),
		)
	}
}

func (s *EditorService) selectEditor(t entities.ResourceType, req EditorRequest) editor.Descriptor {
	if s.editors != nil {
		desc, err := s.editors.Select(t, req.UserAgent, req.EditorMode)
		if err == nil {
			return desc
		}
		s.logger.Debug("No configured editor matches, using the default kind",
			zap.String("resourceType", string(t)),
			zap.Error(err),
		)
	}
	kind := editor.KindForResourceType(t)
	return editor.Descriptor{Name: kind.String(), Kind: kind}
}

// checkLock reports whether this session acquired the lock. A lock the user
// already holds is inherited and stays in place when the session ends.
func (s *EditorService) checkLock(ctx context.Context, path, userID string) (bool, error) {
	lock, err := s.locks.GetLock(ctx, path)
	if err != nil {
		return false, pkgerrors.NewFileAccessError(path, err)
	}
	if lock != nil {
		if lock.Owner != userID {
			return false, pkgerrors.ErrResourceLocked.Clone().
				WithDetail("path", path).
				WithDetail("owner", lock.Owner)
		}
		return false, nil
	}
	if _, err := s.locks.Acquire(ctx, path, userID, s.config.LockDuration); err != nil {
		return false, err
	}
	return true, nil
}

// load parses the temporary file according to the editor kind
func (s *EditorService) load(ec *editContext) error {
	content := ec.temp.Content()
	switch ec.kind {
	case editor.KindPlainText:
		ec.text = string(content)
		return nil
	case editor.KindSimplePage, editor.KindDefaultPage:
		ec.decl = aggregates.ParseTemplateElements(ec.temp.Property(entities.PropertyTemplateElements))
	case editor.KindXMLContent:
		schema, err := s.schemas.Get(ec.temp.Property(entities.PropertySchema))
		if err != nil {
			return err
		}
		ec.schema = schema
	}

	if len(bytes.TrimSpace(content)) == 0 {
		ec.doc = aggregates.NewDocument()
		return nil
	}
	doc, err := aggregates.ParseDocument(content)
	if err != nil {
		return err
	}
	ec.doc = doc
	return nil
}

// bufferTarget is the locale and element the posted buffer belongs to
func (s *EditorService) bufferTarget(ec *editContext) (valueobjects.Locale, string) {
	req := ec.req
	l := valueobjects.OptionalLocale(firstNonEmpty(req.OldElementLanguage, req.ElementLanguage))
	if l.IsZero() {
		l = ec.session.ActiveLocale
	}
	return l, firstNonEmpty(req.OldElementName, req.ElementName, ec.session.ActiveElement)
}

// applyBuffer writes the posted buffer into the loaded content
func (s *EditorService) applyBuffer(ec *editContext) error {
	req := ec.req
	switch ec.kind {
	case editor.KindPlainText:
		if req.Content == nil {
			return nil
		}
		buf, err := valueobjects.NewEditorBufferWithConfig(*req.Content, ec.kind.BufferFormat(), s.config)
		if err != nil {
			return err
		}
		ec.text = buf.Text()
		ec.dirty = true

	case editor.KindSimplePage, editor.KindDefaultPage:
		l, name := s.bufferTarget(ec)
		if req.Content == nil || l.IsZero() || name == "" || !ec.doc.HasLocale(l) {
			return nil
		}
		if !ec.decl.Addressable(name) {
			return pkgerrors.ErrElementNotAddressable.Clone().WithDetail("element", name)
		}
		buf, err := valueobjects.NewEditorBufferWithConfig(*req.Content, ec.kind.BufferFormat(), s.config)
		if err != nil {
			return err
		}
		ref, err := valueobjects.NewElementReference(name, l.String())
		if err != nil {
			return err
		}
		if err := ec.doc.SetValue(ref, buf.Text()); err != nil {
			return err
		}
		ec.dirty = true

	case editor.KindXMLContent:
		l, _ := s.bufferTarget(ec)
		if len(req.Values) == 0 || l.IsZero() || !ec.doc.HasLocale(l) {
			return nil
		}
		paths, values, err := sortedPaths(req.Values)
		if err != nil {
			return err
		}
		for _, p := range paths {
			def, ok := ec.schema.LookupPath(p)
			if !ok {
				return pkgerrors.ErrElementNotAddressable.Clone().WithDetail("path", p.String())
			}
			if def.Type == aggregates.ElementChoice {
				continue
			}
			format := valueobjects.FormatPlainText
			if def.Type == aggregates.ElementHTML {
				format = valueobjects.FormatHTML
			}
			buf, err := valueobjects.NewEditorBufferWithConfig(values[p.String()], format, s.config)
			if err != nil {
				return err
			}
			if err := ec.doc.SetValue(valueobjects.ElementReference{Path: p, Locale: l}, buf.Text()); err != nil {
				return err
			}
		}
		ec.dirty = true
	}
	return nil
}

// sortedPaths orders posted paths so parents and lower indexes come first,
// which is the order in which missing elements can be created. The returned
// map holds the values keyed by canonical path.
func sortedPaths(posted map[string]string) ([]valueobjects.ElementPath, map[string]string, error) {
	paths := make([]valueobjects.ElementPath, 0, len(posted))
	values := make(map[string]string, len(posted))
	for raw, v := range posted {
		p, err := valueobjects.ParseElementPath(raw)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := values[p.String()]; !dup {
			paths = append(paths, p)
		}
		values[p.String()] = v
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.Depth() != b.Depth() {
			return a.Depth() < b.Depth()
		}
		if a.Index() != b.Index() {
			return a.Index() < b.Index()
		}
		return a.String() < b.String()
	})
	return paths, values, nil
}

// selectTarget picks the locale and element to show next. Switching to
// another locale of an xml content requires the current locale to be valid.
func (s *EditorService) selectTarget(ec *editContext) error {
	current, _ := s.bufferTarget(ec)
	requested := valueobjects.OptionalLocale(ec.req.ElementLanguage)
	if requested.IsZero() {
		requested = current
	}

	if ec.req.Action == editor.ActionChangeElement && ec.kind == editor.KindXMLContent &&
		!current.IsZero() && !requested.Equals(current) && ec.doc.HasLocale(current) {
		if errs := s.validator.ValidateXMLContentLocale(ec.doc, ec.schema, current); errs.HasErrors() {
			ec.errors = errs
			requested = current
		}
	}

	if !requested.IsZero() && !ec.doc.HasLocale(requested) && len(ec.doc.Locales()) >= s.config.MaxLocales {
		return pkgerrors.ErrTooManyLocales.Clone().WithDetail("max_locales", s.config.MaxLocales)
	}

	before := len(ec.doc.Locales())
	var initLocale editor.LocaleInitializer = editor.PageLocale
	if ec.schema != nil {
		initLocale = editor.SchemaLocale(ec.schema)
	}
	locale, err := editor.SelectLocale(ec.doc, requested, s.defaultLocales(ec.original), initLocale)
	if err != nil {
		return err
	}
	ec.locale = locale
	if len(ec.doc.Locales()) != before {
		ec.dirty = true
	}

	s.selectElement(ec)
	return nil
}

// selectElement picks the page element and creates it when it is declared
// but not stored yet
func (s *EditorService) selectElement(ec *editContext) {
	if ec.kind != editor.KindSimplePage && ec.kind != editor.KindDefaultPage {
		return
	}
	active := editor.ActiveElements(ec.decl, ec.doc, ec.locale)
	ec.element = editor.SelectElement(firstNonEmpty(ec.req.ElementName, ec.session.ActiveElement), active, s.config.DefaultElementName)

	ref, err := valueobjects.NewElementReference(ec.element, ec.locale.String())
	if err != nil || ec.doc.HasValue(ref) {
		return
	}
	if err := ec.doc.SetValue(ref, ""); err == nil {
		ec.dirty = true
	}
}

func (s *EditorService) defaultLocales(r *entities.Resource) valueobjects.LocaleList {
	if r != nil {
		if ll := valueobjects.ParseLocaleList(r.Property(entities.PropertyLocales)); len(ll) > 0 {
			return ll
		}
	}
	return valueobjects.ParseLocaleList(strings.Join(s.config.DefaultLocales, ","))
}

func (s *EditorService) deleteLocale(ctx context.Context, ec *editContext) error {
	target := valueobjects.OptionalLocale(ec.req.ElementLanguage)
	if target.IsZero() {
		target = ec.locale
	}
	next, err := editor.DeleteLocale(ec.doc, target)
	if err != nil {
		return err
	}
	ec.locale = next
	ec.dirty = true
	s.selectElement(ec)

	s.publish(ctx, events.NewLocaleDeleted(ec.original.ID(), target.String(), next.String(), s.clock.Now()))
	return nil
}

func (s *EditorService) copyLocale(ec *editContext) error {
	var targets valueobjects.LocaleList
	added := 0
	for _, raw := range ec.req.CopyTargets {
		l := valueobjects.OptionalLocale(raw)
		if l.IsZero() || targets.Contains(l) {
			continue
		}
		if !ec.doc.HasLocale(l) {
			added++
		}
		targets = append(targets, l)
	}
	if len(ec.doc.Locales())+added > s.config.MaxLocales {
		return pkgerrors.ErrTooManyLocales.Clone().WithDetail("max_locales", s.config.MaxLocales)
	}
	if err := editor.CopyLocale(ec.doc, ec.locale, targets); err != nil {
		return err
	}
	ec.dirty = true
	return nil
}

func (s *EditorService) changeStructure(ec *editContext) error {
	if ec.schema == nil {
		return pkgerrors.ErrActionNotSupported.Clone().WithDetail("action", ec.req.Action.String())
	}
	name := ec.req.ElementName
	if ec.req.Action == editor.ActionAddElement && ec.req.ChoiceElement != "" {
		name = ec.req.ChoiceElement
	}
	path, err := valueobjects.ParseElementPath(name)
	if err != nil {
		return err
	}
	if ec.req.ElementIndex > 0 {
		path = path.WithIndex(ec.req.ElementIndex)
	}

	switch ec.req.Action {
	case editor.ActionAddElement:
		_, err = editor.AddElement(ec.doc, ec.schema, ec.locale, path, ec.req.ChoiceType)
	case editor.ActionRemoveElement:
		err = editor.RemoveElement(ec.doc, ec.schema, ec.locale, path)
	default:
		_, err = editor.MoveElement(ec.doc, ec.locale, path, ec.req.Action == editor.ActionElementUp)
	}
	if err != nil {
		return err
	}
	ec.dirty = true
	return nil
}

func (s *EditorService) validate(ec *editContext) *pkgerrors.ValidationErrors {
	switch ec.kind {
	case editor.KindXMLContent:
		return s.validator.ValidateXMLContent(ec.doc, ec.schema)
	case editor.KindSimplePage, editor.KindDefaultPage:
		return s.validator.ValidatePage(ec.doc)
	}
	return pkgerrors.NewValidationErrors()
}

// save validates every locale and commits. Invalid content stays in the
// temporary file and the original is left untouched.
func (s *EditorService) save(ctx context.Context, ec *editContext) (*EditorView, error) {
	if err := s.persist(ctx, ec); err != nil {
		return nil, err
	}
	if errs := s.validate(ec); errs.HasErrors() {
		ec.errors = errs
		if err := s.saveSession(ctx, ec); err != nil {
			return nil, err
		}
		return s.render(ec, editor.StateShow), nil
	}

	data := s.hookData(ec.original, ec.req.UserID, ec.req.Action.String(), ec.localeStrings())
	if err := s.hooks.Execute(ctx, extensions.HookBeforeSave, data); err != nil {
		return nil, err
	}

	committed, err := s.commit.Commit(ctx, sagas.CommitRequest{
		Original: ec.original,
		Temp:     ec.temp,
		UserID:   ec.req.UserID,
		Locales:  ec.localeStrings(),
	})
	if err != nil {
		return nil, err
	}
	ec.original = committed
	ec.session.Merge(entities.SessionUpdate{Modified: entities.Bool(false)}, s.clock.Now())

	s.logger.Info("Saved resource",
		zap.String("resource", committed.Path()),
		zap.Int("version", committed.Version()),
		zap.String("userID", ec.req.UserID),
	)

	if ec.req.Action == editor.ActionSaveExit {
		return s.close(ctx, committed, ec.session, ec.req, editor.StateSaveExit)
	}

	var message string
	if ec.req.Action == editor.ActionSaveAction {
		if err := s.hooks.Execute(ctx, extensions.HookAfterCommit, data); err != nil {
			s.logger.Error("After commit hooks failed",
				zap.String("resource", committed.Path()),
				zap.Error(err),
			)
			message = "saved, but the follow-up action failed"
		}
	}

	if err := s.saveSession(ctx, ec); err != nil {
		return nil, err
	}
	view := s.render(ec, editor.StateSave)
	view.PublishTaskID = data.String(MetadataPublishTaskID)
	view.Message = message
	return view, nil
}

// close ends an editing session: the temporary file goes away, the lock is
// released if this session acquired it, and the session record is dropped.
// A caller without a session, or whose lock was taken over, owns neither the
// temporary file nor the lock and only gets the exit view.
func (s *EditorService) close(ctx context.Context, original *entities.Resource, session *entities.EditSession, req EditorRequest, state editor.State) (*EditorView, error) {
	view := &EditorView{
		State:    state,
		Action:   req.Action.Token(),
		Resource: original.Path(),
		BackLink: req.BackLink,
	}
	if session == nil {
		s.logger.Debug("No edit session to close",
			zap.String("resource", original.Path()),
			zap.String("userID", req.UserID),
		)
		return view, nil
	}

	data := s.hookData(original, req.UserID, req.Action.String(), nil)
	if err := s.hooks.Execute(ctx, extensions.HookBeforeExit, data); err != nil {
		s.logger.Warn("Before exit hooks failed", zap.String("resource", original.Path()), zap.Error(err))
	}

	owner, err := s.ownsTempFile(ctx, original, session, req.UserID)
	if err != nil {
		return nil, err
	}
	unlocked := false
	if owner {
		if err := s.tempFiles.Delete(ctx, original); err != nil {
			return nil, err
		}
		if session.LockAcquired {
			if err := s.locks.Release(ctx, original.Path(), req.UserID); err != nil {
				return nil, fmt.Errorf("release lock on %s: %w", original.Path(), err)
			}
			unlocked = true
		}
	} else {
		s.logger.Warn("Lock taken over by another user, leaving the temporary file in place",
			zap.String("resource", original.Path()),
			zap.String("userID", req.UserID),
		)
	}
	if err := s.sessions.Delete(ctx, session.Key); err != nil {
		return nil, pkgerrors.NewDatabaseError("delete edit session", err)
	}

	s.logger.Info("Closed edit session",
		zap.String("resource", original.Path()),
		zap.String("userID", req.UserID),
		zap.String("reason", req.Action.String()),
		zap.Bool("unlocked", unlocked),
	)
	s.publish(ctx, events.NewEditSessionClosed(original.ID(), req.UserID, unlocked, req.Action.String(), s.clock.Now()))

	view.Editor = session.EditorName
	view.Kind = session.Kind
	view.DirectEdit = session.DirectEdit
	if view.BackLink == "" {
		view.BackLink = session.BackLink
	}
	return view, nil
}

// ownsTempFile reports whether the caller's session owns the working copy.
// The copy is shared per resource, so it belongs to the session only while
// no other user holds the lock.
func (s *EditorService) ownsTempFile(ctx context.Context, original *entities.Resource, session *entities.EditSession, userID string) (bool, error) {
	if session == nil {
		return false, nil
	}
	lock, err := s.locks.GetLock(ctx, original.Path())
	if err != nil {
		return false, pkgerrors.NewDatabaseError("get lock", err)
	}
	return lock == nil || lock.Owner == userID, nil
}

// persist writes changed content back to the temporary file
func (s *EditorService) persist(ctx context.Context, ec *editContext) error {
	if !ec.dirty {
		return nil
	}
	var content []byte
	if ec.doc != nil {
		var err error
		if content, err = ec.doc.Bytes(); err != nil {
			return err
		}
	} else {
		content = []byte(ec.text)
	}

	temp, err := s.tempFiles.Write(ctx, ec.original, content, ec.req.UserID)
	if err != nil {
		return err
	}
	ec.temp = temp
	ec.dirty = false
	ec.session.Merge(entities.SessionUpdate{Modified: entities.Bool(true)}, s.clock.Now())
	return nil
}

func (s *EditorService) saveSession(ctx context.Context, ec *editContext) error {
	ec.session.Merge(entities.SessionUpdate{
		TempFilePath:  ec.temp.Path(),
		ActiveLocale:  ec.locale,
		ActiveElement: ec.element,
	}, s.clock.Now())
	if err := s.sessions.Save(ctx, ec.session); err != nil {
		return pkgerrors.NewDatabaseError("save edit session", err)
	}
	return nil
}

func (s *EditorService) render(ec *editContext, state editor.State) *EditorView {
	view := &EditorView{
		State:      state,
		Action:     ec.req.Action.Token(),
		Resource:   ec.original.Path(),
		TempFile:   ec.temp.Path(),
		Editor:     ec.session.EditorName,
		Kind:       ec.kind.String(),
		BackLink:   ec.session.BackLink,
		DirectEdit: ec.session.DirectEdit,
		Modified:   ec.session.Modified,
	}
	if ec.errors != nil && ec.errors.HasErrors() {
		view.Errors = ec.errors.ByLocale()
	}
	if state == editor.StatePreview {
		view.PreviewPath = ec.temp.Path()
	}

	switch ec.kind {
	case editor.KindPlainText:
		text := ec.text
		view.Content = &text
	case editor.KindSimplePage, editor.KindDefaultPage:
		view.Locales = ec.doc.Locales().Strings()
		view.ElementLanguage = ec.locale.String()
		view.ElementName = ec.element
		view.Elements = editor.ActiveElements(ec.decl, ec.doc, ec.locale)
		var text string
		if ref, err := valueobjects.NewElementReference(ec.element, ec.locale.String()); err == nil {
			text, _ = ec.doc.Value(ref)
		}
		view.Content = &text
	case editor.KindXMLContent:
		view.Locales = ec.doc.Locales().Strings()
		view.ElementLanguage = ec.locale.String()
		view.Elements = editor.SchemaElements(ec.schema, ec.doc, ec.locale)
		view.Values = ec.doc.Values(ec.locale)
		view.NeedsCorrection = ec.schema.NeedsCorrection(ec.doc)
	}
	return view
}

func (s *EditorService) hookData(r *entities.Resource, userID, operation string, locales []string) *extensions.HookData {
	return &extensions.HookData{
		ResourceID:   r.ID().String(),
		ResourcePath: r.Path(),
		UserID:       userID,
		Operation:    operation,
		Locales:      locales,
	}
}

func (s *EditorService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish editor event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func (ec *editContext) localeStrings() []string {
	if ec.doc == nil {
		return nil
	}
	return ec.doc.Locales().Strings()
}

// unrecoverable tells errors the user can fix from broken infrastructure
// and corrupt content
func unrecoverable(err error) bool {
	if errors.Is(err, pkgerrors.ErrInvalidContent) {
		return true
	}
	var validationErrs *pkgerrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		return false
	}
	t, ok := pkgerrors.TypeOf(err)
	return !ok || t.Infrastructure()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
