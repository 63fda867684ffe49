package report

import (
	"strings"

	"github.com/pavelanni/reportwriter/internal/model"
)

// ExportFileName is the download name for one student's report.
func ExportFileName(s model.Student) string {
	return s.FirstName + "_" + s.LastName + "_Report.txt"
}

// ExportText prefixes a report with the student's name.
func ExportText(s model.Student, content string) string {
	return s.FullName() + "\n\n" + content
}

// ClassExportFileName is the download name for a whole class bundle.
func ClassExportFileName(c *model.Class) string {
	return c.Name + "_All_Reports.txt"
}

// ClassExportText joins every saved report in roster order. Students
// without a report are left out.
func ClassExportText(reports []model.StudentReport) string {
	var sb strings.Builder
	for _, sr := range reports {
		if sr.Report == nil {
			continue
		}
		sb.WriteString(ExportText(sr.Student, sr.Report.Content))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// WordCount counts whitespace-separated words.
func WordCount(content string) int {
	return len(strings.Fields(content))
}
