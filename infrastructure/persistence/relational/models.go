package relational

import (
	"time"

	"cmseditor/domain/core/entities"
)

// bewerbungRow is one posted application form
type bewerbungRow struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	SubmittedAt        time.Time `gorm:"index;not null"`
	RemoteAddr         string    `gorm:"size:64"`
	Anrede             string    `gorm:"size:10"`
	Titel              string    `gorm:"size:30"`
	Vorname            string    `gorm:"size:50"`
	Nachname           string    `gorm:"size:50"`
	Strasse            string    `gorm:"size:80"`
	Hausnummer         string    `gorm:"size:10"`
	Plz                string    `gorm:"size:5"`
	Ort                string    `gorm:"size:50"`
	Land               string    `gorm:"size:50"`
	Telefon            string    `gorm:"size:30"`
	Mobil              string    `gorm:"size:30"`
	Fax                string    `gorm:"size:30"`
	Email              string    `gorm:"size:100"`
	Geburtsdatum       string    `gorm:"size:10"`
	Nationalitaet      string    `gorm:"size:50"`
	Position           string    `gorm:"size:100;index"`
	Eintrittsdatum     string    `gorm:"size:20"`
	Gehaltsvorstellung string    `gorm:"size:20"`
	Ausbildung         string    `gorm:"size:500"`
	Berufserfahrung    string    `gorm:"size:1000"`
	Sprachkenntnisse   string    `gorm:"size:300"`
	Edvkenntnisse      string    `gorm:"size:300"`
	Quelle             string    `gorm:"size:100"`
	Bemerkung          string    `gorm:"size:2000"`
	Datenschutz        string    `gorm:"size:5"`
}

func (bewerbungRow) TableName() string { return "bewerbungen" }

func newBewerbungRow(f *entities.ApplicationForm) *bewerbungRow {
	return &bewerbungRow{
		ID:                 f.ID,
		SubmittedAt:        f.SubmittedAt.UTC(),
		RemoteAddr:         f.RemoteAddr,
		Anrede:             f.Anrede,
		Titel:              f.Titel,
		Vorname:            f.Vorname,
		Nachname:           f.Nachname,
		Strasse:            f.Strasse,
		Hausnummer:         f.Hausnummer,
		Plz:                f.Plz,
		Ort:                f.Ort,
		Land:               f.Land,
		Telefon:            f.Telefon,
		Mobil:              f.Mobil,
		Fax:                f.Fax,
		Email:              f.Email,
		Geburtsdatum:       f.Geburtsdatum,
		Nationalitaet:      f.Nationalitaet,
		Position:           f.Position,
		Eintrittsdatum:     f.Eintrittsdatum,
		Gehaltsvorstellung: f.Gehaltsvorstellung,
		Ausbildung:         f.Ausbildung,
		Berufserfahrung:    f.Berufserfahrung,
		Sprachkenntnisse:   f.Sprachkenntnisse,
		Edvkenntnisse:      f.Edvkenntnisse,
		Quelle:             f.Quelle,
		Bemerkung:          f.Bemerkung,
		Datenschutz:        f.Datenschutz,
	}
}

// workflowTaskRow is one entry of the workflow table
type workflowTaskRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Kind        string    `gorm:"size:20;not null"`
	State       string    `gorm:"size:20;not null;index:idx_workflow_state_created,priority:1"`
	Subject     string    `gorm:"size:255"`
	ReferenceID string    `gorm:"size:255"`
	CreatedBy   string    `gorm:"size:100"`
	CreatedAt   time.Time `gorm:"not null;index:idx_workflow_state_created,priority:2"`
}

func (workflowTaskRow) TableName() string { return "workflow_tasks" }

func newWorkflowTaskRow(t *entities.WorkflowTask) *workflowTaskRow {
	return &workflowTaskRow{
		ID:          t.ID,
		Kind:        string(t.Kind),
		State:       string(t.State),
		Subject:     t.Subject,
		ReferenceID: t.ReferenceID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func (r *workflowTaskRow) toEntity() *entities.WorkflowTask {
	return &entities.WorkflowTask{
		ID:          r.ID,
		Kind:        entities.TaskKind(r.Kind),
		State:       entities.TaskState(r.State),
		Subject:     r.Subject,
		ReferenceID: r.ReferenceID,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}
