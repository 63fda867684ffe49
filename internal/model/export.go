package model

import "time"

// TemplateExportVersion is the version written into template export files.
const TemplateExportVersion = "1.0"

// TemplateExport is the envelope of a shared template file.
type TemplateExport struct {
	Template   *Template `json:"template"`
	ExportedAt time.Time `json:"exportedAt"`
	ExportedBy string    `json:"exportedBy"`
	Version    string    `json:"version"`
}

// StudentReport pairs a student with their saved report, if any.
type StudentReport struct {
	Student Student
	Report  *Report
}

// ClassStatus lists which students of a class have a saved report for a template.
type ClassStatus struct {
	Class     Class
	Template  Template
	Completed []StudentReport
	Missing   []Student
}
