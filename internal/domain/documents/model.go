package documents

import "time"

// Document es la metadata; los bytes viven en el storage de archivos externo (FilePath).
type Document struct {
	ID string

	PatientID  string // dueño
	UploadedBy string

	FileName     string
	FilePath     string
	FileType     string
	DocumentType string
	Description  string
	HospitalName string

	DateOfDocument *time.Time
	Tags           []string

	Active    bool
	Trashed   bool
	TrashedAt *time.Time
	TrashedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Document) trash(by string, at time.Time) Document {
	d.Trashed = true
	d.Active = false
	d.TrashedAt = &at
	d.TrashedBy = by
	d.UpdatedAt = at
	return d
}

func (d Document) restore(at time.Time) Document {
	d.Trashed = false
	d.Active = true
	d.TrashedAt = nil
	d.TrashedBy = ""
	d.UpdatedAt = at
	return d
}
