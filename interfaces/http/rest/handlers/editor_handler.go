package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	"cmseditor/application/queries"
	querybus "cmseditor/application/queries/bus"
	"cmseditor/application/services"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
	"cmseditor/pkg/auth"
	"cmseditor/pkg/common"
	pkgerrors "cmseditor/pkg/errors"
)

// Request parameters of the editor endpoint
const (
	ParamAction             = "action"
	ParamResource           = "resource"
	ParamResourceType       = "resourcetype"
	ParamSchema             = "schema"
	ParamTempFile           = "tempfile"
	ParamContent            = "content"
	ParamElementName        = "elementname"
	ParamOldElementName     = "oldelementname"
	ParamElementLanguage    = "elementlanguage"
	ParamOldElementLanguage = "oldelementlanguage"
	ParamDirectEdit         = "directedit"
	ParamBackLink           = "backlink"
	ParamEditorMode         = "editormode"
	ParamElementIndex       = "elementindex"
	ParamChoiceElement      = "choiceelement"
	ParamChoiceType         = "choicetype"
	ParamCopyTarget         = "copytarget"
	ParamModified           = "modified"
	ParamNewLink            = "newlink"

	// xmlcontent values are posted as xml.<element path>
	xmlValuePrefix = "xml."
)

// maxEditorBody bounds a posted editor request
const maxEditorBody = 8 << 20

// EditorHandler serves the editor endpoints
type EditorHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *EditorHandler {
	return &EditorHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// Edit handles GET and POST /editor
func (h *EditorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		handleError(h.errors, w, r, pkgerrors.NewUnauthorizedError("editing requires a signed in user"))
		return
	}

	req, err := parseEditorRequest(w, r)
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}
	req.UserID = user.UserID
	req.UserAgent = r.UserAgent()

	result, err := h.commandBus.Send(r.Context(), commands.EditorActionCommand{Request: req})
	view, _ := result.(*services.EditorView)
	if err != nil {
		// unrecoverable failures come with an error view the browser
		// renders instead of the editor
		if view != nil && view.State == editor.StateError {
			common.RespondJSON(w, pkgerrors.HTTPStatus(err), view)
			return
		}
		handleError(h.errors, w, r, err)
		return
	}
	if view == nil {
		handleError(h.errors, w, r, pkgerrors.NewInternalError("editor returned no view"))
		return
	}

	h.logger.Debug("Editor action handled",
		zap.String("resource", view.Resource),
		zap.String("action", req.Action.String()),
		zap.Stringer("state", view.State),
	)
	common.RespondJSON(w, http.StatusOK, view)
}

// Session handles GET /editor/session
func (h *EditorHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		handleError(h.errors, w, r, pkgerrors.NewUnauthorizedError("unauthorized"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetEditSessionQuery{
		UserID:   user.UserID,
		Resource: r.URL.Query().Get(ParamResource),
	})
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Locales handles GET /editor/locales
func (h *EditorHandler) Locales(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		handleError(h.errors, w, r, pkgerrors.NewUnauthorizedError("unauthorized"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListLocalesQuery{
		UserID:   user.UserID,
		Resource: r.URL.Query().Get(ParamResource),
	})
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// SelectEditor handles GET /editors/select
func (h *EditorHandler) SelectEditor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.queryBus.Ask(r.Context(), queries.SelectEditorQuery{
		ResourceType: entities.ResourceType(q.Get(ParamResourceType)),
		UserAgent:    r.UserAgent(),
		Preferred:    q.Get(ParamEditorMode),
	})
	if err != nil {
		handleError(h.errors, w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// parseEditorRequest reads the editor parameters from the query string and
// a urlencoded or multipart body
func parseEditorRequest(w http.ResponseWriter, r *http.Request) (services.EditorRequest, error) {
	var req services.EditorRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxEditorBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxEditorBody); err != nil {
			return req, pkgerrors.NewValidationError("invalid multipart body: " + err.Error())
		}
	} else if err := r.ParseForm(); err != nil {
		return req, pkgerrors.NewValidationError("invalid form body: " + err.Error())
	}
	form := r.Form

	action, err := editor.ParseAction(form.Get(ParamAction))
	if err != nil {
		return req, err
	}

	req.Action = action
	req.Resource = form.Get(ParamResource)
	req.ResourceType = entities.ResourceType(form.Get(ParamResourceType))
	req.Schema = form.Get(ParamSchema)
	req.TempFile = form.Get(ParamTempFile)
	req.ElementName = form.Get(ParamElementName)
	req.OldElementName = form.Get(ParamOldElementName)
	req.ElementLanguage = form.Get(ParamElementLanguage)
	req.OldElementLanguage = form.Get(ParamOldElementLanguage)
	req.ChoiceElement = form.Get(ParamChoiceElement)
	req.ChoiceType = form.Get(ParamChoiceType)
	req.BackLink = form.Get(ParamBackLink)
	req.NewLink = form.Get(ParamNewLink)
	req.EditorMode = form.Get(ParamEditorMode)

	if form.Has(ParamContent) {
		content := form.Get(ParamContent)
		req.Content = &content
	}
	if req.DirectEdit, err = optionalBool(form, ParamDirectEdit); err != nil {
		return req, err
	}
	if req.Modified, err = optionalBool(form, ParamModified); err != nil {
		return req, err
	}
	if v := form.Get(ParamElementIndex); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 {
			return req, pkgerrors.NewValidationError("elementindex must be a non-negative integer")
		}
		req.ElementIndex = idx
	}
	for _, target := range form[ParamCopyTarget] {
		for _, t := range strings.Split(target, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.CopyTargets = append(req.CopyTargets, t)
			}
		}
	}

	for key, values := range form {
		if !strings.HasPrefix(key, xmlValuePrefix) || len(values) == 0 {
			continue
		}
		if req.Values == nil {
			req.Values = make(map[string]string)
		}
		req.Values[strings.TrimPrefix(key, xmlValuePrefix)] = values[0]
	}
	return req, nil
}

func optionalBool(form url.Values, name string) (*bool, error) {
	if !form.Has(name) {
		return nil, nil
	}
	v, err := strconv.ParseBool(form.Get(name))
	if err != nil {
		return nil, pkgerrors.NewValidationError(name + " must be a boolean")
	}
	return &v, nil
}
