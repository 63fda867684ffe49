package store

import (
	"fmt"

	"github.com/pavelanni/reportwriter/internal/model"
)

// ClassStatus splits a class roster into students with and without a saved
// report for the template, both in roster order.
func (s *Store) ClassStatus(classID, templateID string) (*model.ClassStatus, error) {
	class, err := s.GetClass(classID)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	byStudent, err := s.reportsByStudent(classID, templateID)
	if err != nil {
		return nil, err
	}

	status := &model.ClassStatus{Class: *class, Template: *tmpl}
	for _, st := range class.Students {
		if r, ok := byStudent[st.ID]; ok {
			status.Completed = append(status.Completed, model.StudentReport{Student: st, Report: r})
		} else {
			status.Missing = append(status.Missing, st)
		}
	}
	return status, nil
}

// ExportClassReports returns every student of a class in roster order,
// paired with their report under the template when one exists.
func (s *Store) ExportClassReports(classID, templateID string) (*model.Class, []model.StudentReport, error) {
	class, err := s.GetClass(classID)
	if err != nil {
		return nil, nil, err
	}
	byStudent, err := s.reportsByStudent(classID, templateID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.StudentReport, 0, len(class.Students))
	for _, st := range class.Students {
		out = append(out, model.StudentReport{Student: st, Report: byStudent[st.ID]})
	}
	return class, out, nil
}

func (s *Store) reportsByStudent(classID, templateID string) (map[string]*model.Report, error) {
	reports, err := s.ListReportsForClass(classID, templateID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	byStudent := make(map[string]*model.Report, len(reports))
	for i := range reports {
		byStudent[reports[i].StudentID] = &reports[i]
	}
	return byStudent, nil
}
