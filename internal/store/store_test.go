package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTemplate() *model.Template {
	return &model.Template{
		ID:   "tmpl-1",
		Name: "Autumn term",
		Sections: []model.Section{
			{ID: "effort", Type: model.SectionRatedComment, Name: "Effort", Data: &model.RatedCommentData{
				Ratings: map[string][]string{"good": {"[Name] works hard."}},
			}},
			{ID: "close", Type: model.SectionStandardComment, Name: "Closing", Data: &model.StandardCommentData{
				Content: "Well done, [Name].",
			}},
		},
	}
}

func insertTestTemplate(t *testing.T, s *Store) *model.Template {
	t.Helper()
	tmpl := testTemplate()
	if err := s.SaveTemplate(tmpl); err != nil {
		t.Fatalf("insertTestTemplate: %v", err)
	}
	return tmpl
}

func insertTestClass(t *testing.T, s *Store) *model.Class {
	t.Helper()
	c := &model.Class{
		ID:   "class-1",
		Name: "Year 5",
		Students: []model.Student{
			{ID: "s1", FirstName: "Emma", LastName: "Thompson"},
			{ID: "s2", FirstName: "Liam", LastName: "Rodriguez"},
			{ID: "s3", FirstName: "Sophia", LastName: "Chen"},
		},
	}
	if err := s.SaveClass(c); err != nil {
		t.Fatalf("insertTestClass: %v", err)
	}
	return c
}

func saveTestReport(t *testing.T, s *Store, studentID, templateID, content string) *model.Report {
	t.Helper()
	r := &model.Report{
		StudentID:   studentID,
		TemplateID:  templateID,
		ClassID:     "class-1",
		Content:     content,
		SectionData: map[string]json.RawMessage{"effort": json.RawMessage(`{"rating":"good"}`)},
	}
	if err := s.SaveReport(r); err != nil {
		t.Fatalf("saveTestReport: %v", err)
	}
	return r
}

func TestTemplateCRUD(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	tmpl := insertTestTemplate(t, s)
	got, err := s.GetTemplate(tmpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if diff := cmp.Diff(tmpl.Sections, got.Sections); diff != "" {
		t.Errorf("sections differ (-want +got):\n%s", diff)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at set")
	}

	created := got.CreatedAt
	got.Name = "Spring term"
	got.CreatedAt = time.Time{}
	if err := s.SaveTemplate(got); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v kept, got %v", created, got.CreatedAt)
	}
	byName, err := s.FindTemplateByName("Spring term")
	if err != nil {
		t.Fatalf("FindTemplateByName: %v", err)
	}
	if byName == nil || byName.ID != tmpl.ID {
		t.Errorf("expected template %s by name, got %+v", tmpl.ID, byName)
	}
	missing, err := s.FindTemplateByName("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown name, got %+v, %v", missing, err)
	}

	_, err = s.GetTemplate("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	generated := &model.Template{Name: "No id", Sections: testTemplate().Sections}
	if err := s.SaveTemplate(generated); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if generated.ID == "" {
		t.Error("expected generated id")
	}
}

func TestClassRosterOrder(t *testing.T) {
	s := newTestStore(t)
	c := insertTestClass(t, s)

	got, err := s.GetClass(c.ID)
	if err != nil {
		t.Fatalf("GetClass: %v", err)
	}
	if diff := cmp.Diff(c.Students, got.Students); diff != "" {
		t.Errorf("roster differs (-want +got):\n%s", diff)
	}

	// Reorder and drop a student.
	got.Students = []model.Student{got.Students[2], got.Students[0], {FirstName: "Noah", LastName: "Patel"}}
	if err := s.SaveClass(got); err != nil {
		t.Fatalf("SaveClass: %v", err)
	}
	classes, err := s.ListClasses()
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(classes))
	}
	var names []string
	for _, st := range classes[0].Students {
		names = append(names, st.FirstName)
		if st.ID == "" {
			t.Errorf("expected id for %s", st.FirstName)
		}
	}
	if diff := cmp.Diff([]string{"Sophia", "Emma", "Noah"}, names); diff != "" {
		t.Errorf("roster order differs (-want +got):\n%s", diff)
	}

	if _, err := s.GetClass("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReportUpsert(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetReport("s1", "tmpl-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before save, got %+v", got)
	}

	first := saveTestReport(t, s, "s1", "tmpl-1", "First draft.")
	if first.ID != "s1-tmpl-1" {
		t.Errorf("expected composite id, got %q", first.ID)
	}

	second := &model.Report{
		StudentID:  "s1",
		TemplateID: "tmpl-1",
		ClassID:    "class-1",
		Content:    "Final.",
		UpdatedAt:  first.UpdatedAt.Add(time.Hour),
	}
	if err := s.SaveReport(second); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err = s.GetReport("s1", "tmpl-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Content != "Final." {
		t.Errorf("expected content Final., got %q", got.Content)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("expected created_at %v kept, got %v", first.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("expected updated_at after %v, got %v", first.UpdatedAt, got.UpdatedAt)
	}

	count, err := s.ReportCount()
	if err != nil {
		t.Fatalf("ReportCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 report, got %d", count)
	}

	if err := s.DeleteReport("s1", "tmpl-1"); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if got, _ := s.GetReport("s1", "tmpl-1"); got != nil {
		t.Error("expected report deleted")
	}
}

func TestDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	tmpl := insertTestTemplate(t, s)
	other := &model.Template{ID: "tmpl-2", Name: "Other", Sections: testTemplate().Sections}
	if err := s.SaveTemplate(other); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	c := insertTestClass(t, s)
	saveTestReport(t, s, "s1", tmpl.ID, "A")
	saveTestReport(t, s, "s2", tmpl.ID, "B")
	saveTestReport(t, s, "s1", other.ID, "C")

	if err := s.DeleteTemplate(tmpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	reports, err := s.ListReportsForClass(c.ID, "")
	if err != nil {
		t.Fatalf("ListReportsForClass: %v", err)
	}
	if len(reports) != 1 || reports[0].TemplateID != other.ID {
		t.Errorf("expected only the other template's report, got %+v", reports)
	}

	if err := s.DeleteClass(c.ID); err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	if count, _ := s.ReportCount(); count != 0 {
		t.Errorf("expected reports removed with class, got %d", count)
	}
	if err := s.DeleteClass(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTemplate(tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentBanks(t *testing.T) {
	s := newTestStore(t)
	bank := model.CommentBank{
		Type: model.SectionRatedComment,
		Name: "Effort",
		Data: &model.RatedCommentData{Ratings: map[string][]string{"good": {"[Name] tries hard."}}},
	}
	if err := s.SaveCommentBank(bank); err != nil {
		t.Fatalf("SaveCommentBank: %v", err)
	}
	if err := s.SaveCommentBank(model.CommentBank{Type: model.SectionRatedComment, Name: "Bad"}); err == nil {
		t.Error("expected error for bank without data")
	}

	got, err := s.GetCommentBank(model.SectionRatedComment, "Effort")
	if err != nil {
		t.Fatalf("GetCommentBank: %v", err)
	}
	if diff := cmp.Diff(bank, *got); diff != "" {
		t.Errorf("bank differs (-want +got):\n%s", diff)
	}

	banks, err := s.ListCommentBanks(model.SectionNextSteps)
	if err != nil {
		t.Fatalf("ListCommentBanks: %v", err)
	}
	if len(banks) != 0 {
		t.Errorf("expected no next-steps banks, got %d", len(banks))
	}

	if err := s.DeleteCommentBank(model.SectionRatedComment, "Effort"); err != nil {
		t.Fatalf("DeleteCommentBank: %v", err)
	}
	if _, err := s.GetCommentBank(model.SectionRatedComment, "Effort"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newTestStore(t)
	insertTestTemplate(t, src)
	insertTestClass(t, src)
	saveTestReport(t, src, "s1", "tmpl-1", "Emma works hard.")
	if err := src.SaveCommentBank(model.CommentBank{
		Type: model.SectionStandardComment,
		Name: "Sign-off",
		Data: &model.StandardCommentData{Content: "Have a restful break."},
	}); err != nil {
		t.Fatalf("SaveCommentBank: %v", err)
	}

	snap, err := src.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snap.Templates) != 1 || len(snap.Classes) != 1 || len(snap.Reports) != 1 || len(snap.CommentBanks) != 1 {
		t.Fatalf("unexpected snapshot sizes: %d/%d/%d/%d",
			len(snap.Templates), len(snap.Classes), len(snap.Reports), len(snap.CommentBanks))
	}

	// Through JSON, the way backup files travel.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var restored model.Snapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	dst := newTestStore(t)
	insertTestTemplate(t, dst)
	stale := &model.Template{ID: "stale", Name: "Stale", Sections: testTemplate().Sections}
	if err := dst.SaveTemplate(stale); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if err := dst.SaveAll(restored); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	again, err := dst.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	timeEqual := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
	if diff := cmp.Diff(snap, again, timeEqual); diff != "" {
		t.Errorf("snapshot differs after restore (-want +got):\n%s", diff)
	}
}

func TestClassStatusAndExport(t *testing.T) {
	s := newTestStore(t)
	tmpl := insertTestTemplate(t, s)
	c := insertTestClass(t, s)
	saveTestReport(t, s, "s2", tmpl.ID, "Liam works hard.")

	status, err := s.ClassStatus(c.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("ClassStatus: %v", err)
	}
	if len(status.Completed) != 1 || status.Completed[0].Student.FirstName != "Liam" {
		t.Errorf("expected Liam completed, got %+v", status.Completed)
	}
	if len(status.Missing) != 2 || status.Missing[0].FirstName != "Emma" || status.Missing[1].FirstName != "Sophia" {
		t.Errorf("expected Emma and Sophia missing, got %+v", status.Missing)
	}

	class, reports, err := s.ExportClassReports(c.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("ExportClassReports: %v", err)
	}
	if class.Name != "Year 5" || len(reports) != 3 {
		t.Fatalf("unexpected export %s with %d entries", class.Name, len(reports))
	}
	if got := report.ClassExportText(reports); got != "Liam Rodriguez\n\nLiam works hard.\n\n" {
		t.Errorf("unexpected class export %q", got)
	}

	if _, err := s.ClassStatus(c.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tmpl := insertTestTemplate(t, s)
	c := insertTestClass(t, s)

	sess, err := report.NewSession(report.NewGenerator(), s, c, tmpl)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := sess.Update("effort", []byte(`{"rating":"good"}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := sess.Preview()
	if _, err := sess.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.GetReport("s1", tmpl.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Content != want || want != "Emma works hard. Well done, Emma." {
		t.Errorf("expected content %q, got %q", want, got.Content)
	}
	states, err := model.DecodeStates(tmpl, got.SectionData)
	if err != nil {
		t.Fatalf("DecodeStates: %v", err)
	}
	if regen := report.NewGenerator().Generate(tmpl, c.Students[0], states); regen != got.Content {
		t.Errorf("expected regenerated %q, got %q", got.Content, regen)
	}
}

func TestImportHashes(t *testing.T) {
	s := newTestStore(t)

	id, err := s.ImportedTemplate("abc")
	if err != nil {
		t.Fatalf("ImportedTemplate: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
	if err := s.MarkImported("abc", "tmpl-9"); err != nil {
		t.Fatalf("MarkImported: %v", err)
	}
	if id, _ := s.ImportedTemplate("abc"); id != "tmpl-9" {
		t.Errorf("expected tmpl-9, got %q", id)
	}
}

func TestUsersAndAuthSessions(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser(model.User{Username: "teacher", DisplayName: "Ms Smith", PasswordHash: "x", Role: model.UserRoleTeacher, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err := s.GetUserByUsername("teacher")
	if err != nil || u == nil {
		t.Fatalf("GetUserByUsername: %v, %v", u, err)
	}
	if u.ID != id || u.Role != model.UserRoleTeacher {
		t.Errorf("unexpected user %+v", u)
	}
	if u, _ := s.GetUserByUsername("ghost"); u != nil {
		t.Error("expected nil for unknown user")
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil || sess == nil || sess.UserID != id {
		t.Fatalf("GetAuthSession: %+v, %v", sess, err)
	}

	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	if sess, _ := s.GetAuthSession(token); sess != nil {
		t.Error("expected sessions dropped for disabled user")
	}
	u, _ = s.GetUserByID(id)
	if u.Active {
		t.Error("expected user inactive")
	}

	if err := s.SetUserPassword(id, "y"); err != nil {
		t.Fatalf("SetUserPassword: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.PasswordHash != "y" {
		t.Errorf("expected new hash, got %q", u.PasswordHash)
	}

	n, err := s.CleanupExpiredSessions()
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing to clean, got %d", n)
	}
	count, _ := s.UserCount()
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestUserUpdatesUnknownID(t *testing.T) {
	s := newTestStore(t)
	if err := s.ToggleUserActive(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleUserActive: expected ErrNotFound, got %v", err)
	}
	if err := s.SetUserPassword(42, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetUserPassword: expected ErrNotFound, got %v", err)
	}
}

func TestAuthSessionExpiry(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateUser(model.User{Username: "kim", PasswordHash: "x", Role: model.UserRoleTeacher, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	live, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	stale, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if live == stale {
		t.Fatal("expected distinct tokens")
	}
	if _, err := s.db.Exec(`UPDATE auth_sessions SET expires_at = ? WHERE id = ?`, time.Now().Add(-time.Minute), stale); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	if sess, err := s.GetAuthSession(stale); err != nil || sess != nil {
		t.Errorf("expired session = %+v, %v; want nil", sess, err)
	}
	// The expired row was dropped on lookup, so cleanup finds nothing.
	if n, err := s.CleanupExpiredSessions(); err != nil || n != 0 {
		t.Errorf("CleanupExpiredSessions = %d, %v; want 0", n, err)
	}
	if sess, err := s.GetAuthSession(live); err != nil || sess == nil || sess.ID != live {
		t.Fatalf("live session = %+v, %v", sess, err)
	}

	if err := s.SetUserPassword(id, "y"); err != nil {
		t.Fatalf("SetUserPassword: %v", err)
	}
	if sess, _ := s.GetAuthSession(live); sess != nil {
		t.Error("expected password change to end the session")
	}
}
