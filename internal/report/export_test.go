package report

import (
	"testing"

	"github.com/pavelanni/reportwriter/internal/model"
)

func TestExportNames(t *testing.T) {
	if got := ExportFileName(emma); got != "Emma_Thompson_Report.txt" {
		t.Errorf("ExportFileName() = %q", got)
	}
	if got := ClassExportFileName(&model.Class{Name: "5B"}); got != "5B_All_Reports.txt" {
		t.Errorf("ClassExportFileName() = %q", got)
	}
}

func TestExportText(t *testing.T) {
	if got := ExportText(emma, "Good term."); got != "Emma Thompson\n\nGood term." {
		t.Errorf("ExportText() = %q", got)
	}

	liam := model.Student{ID: "s2", FirstName: "Liam", LastName: "Rodriguez"}
	got := ClassExportText([]model.StudentReport{
		{Student: emma, Report: &model.Report{Content: "A."}},
		{Student: model.Student{ID: "s3", FirstName: "Noah"}},
		{Student: liam, Report: &model.Report{Content: "B."}},
	})
	want := "Emma Thompson\n\nA.\n\nLiam Rodriguez\n\nB.\n\n"
	if got != want {
		t.Errorf("ClassExportText() = %q, want %q", got, want)
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("  Emma  did\nwell. "); got != 3 {
		t.Errorf("WordCount() = %d, want 3", got)
	}
}
