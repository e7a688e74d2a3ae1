package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Talent-1/cbt-service/internal/models"
)

func TestExamService_CreateLinksQuestions(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	maths := env.seedSubject(t, "Mathematics", "JSS1")
	english := env.seedSubject(t, "English", "JSS1")

	var ids []uint
	for i := 0; i < 10; i++ {
		subject := maths
		if i%2 == 1 {
			subject = english
		}
		ids = append(ids, env.seedQuestion(t, subject, "q", 0).ID)
	}

	svc := NewExamService(env.deps)
	teacher := staffPrincipal(300, models.RoleTeacher, branch.ID)
	exam, err := svc.Create(context.Background(), &CreateExamRequest{
		Title:      "First Term",
		ClassLevel: "JSS1",
		Duration:   45,
		BranchID:   branch.ID,
		SubjectsIncluded: []models.ExamSubjectRequest{
			{SubjectID: maths.ID, NumberOfQuestions: 5},
			{SubjectID: english.ID, NumberOfQuestions: 3},
		},
		QuestionIDs: append(ids, ids[0]),
	}, teacher)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if exam.TotalQuestionsCount != 10 {
		t.Errorf("TotalQuestionsCount = %d, want 10", exam.TotalQuestionsCount)
	}
	if len(exam.Questions) != 10 {
		t.Errorf("linked questions = %d, want 10", len(exam.Questions))
	}
	if len(exam.SubjectsIncluded) != 2 || exam.SubjectsIncluded[0].SubjectName != "Mathematics" {
		t.Errorf("allocations not snapshotted: %+v", exam.SubjectsIncluded)
	}
	if !exam.ExamDate.Equal(testNow) {
		t.Errorf("exam date should default to now, got %v", exam.ExamDate)
	}
}

func TestExamService_SetQuestionsRecountsTotal(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	subject := env.seedSubject(t, "Mathematics", "JSS1")
	q1 := env.seedQuestion(t, subject, "q1", 0)
	q2 := env.seedQuestion(t, subject, "q2", 0)
	q3 := env.seedQuestion(t, subject, "q3", 0)
	exam := env.seedExam(t, branch.ID, "JSS1", testNow, q1)

	svc := NewExamService(env.deps)
	teacher := staffPrincipal(300, models.RoleTeacher, branch.ID)

	updated, err := svc.SetQuestions(context.Background(), exam.ID, []uint{q3.ID, q2.ID, q3.ID}, teacher)
	if err != nil {
		t.Fatalf("SetQuestions() error = %v", err)
	}
	if updated.TotalQuestionsCount != 2 {
		t.Fatalf("TotalQuestionsCount = %d, want 2", updated.TotalQuestionsCount)
	}
	if updated.Questions[0].QuestionID != q3.ID || updated.Questions[1].QuestionID != q2.ID {
		t.Errorf("questions not kept in the given order: %+v", updated.Questions)
	}
}

func TestExamService_SetQuestionsRejects(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	other := env.seedBranch(t, "Lagos", "LG")
	jss1 := env.seedSubject(t, "Mathematics", "JSS1")
	ss1 := env.seedSubject(t, "Mathematics", "SS1")
	q := env.seedQuestion(t, jss1, "q", 0)
	senior := env.seedQuestion(t, ss1, "senior", 0)
	exam := env.seedExam(t, branch.ID, "JSS1", testNow)
	svc := NewExamService(env.deps)

	tests := []struct {
		name    string
		ids     []uint
		actor   models.UserRole
		branch  uint
		wantErr error
	}{
		{name: "empty list", ids: nil, actor: models.RoleTeacher, branch: branch.ID, wantErr: ErrValidationFailed},
		{name: "unknown question", ids: []uint{q.ID, 9999}, actor: models.RoleTeacher, branch: branch.ID, wantErr: ErrQuestionNotFound},
		{name: "other class level", ids: []uint{senior.ID}, actor: models.RoleTeacher, branch: branch.ID, wantErr: ErrValidationFailed},
		{name: "other branch teacher", ids: []uint{q.ID}, actor: models.RoleTeacher, branch: other.ID, wantErr: ErrForbidden},
		{name: "learner", ids: []uint{q.ID}, actor: models.RoleStudent, branch: branch.ID, wantErr: ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetQuestions(context.Background(), exam.ID, tt.ids, staffPrincipal(300, tt.actor, tt.branch))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr == ErrValidationFailed {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("expected ValidationErrors, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExamService_ListForLearner(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	other := env.seedBranch(t, "Lagos", "LG")
	learner := env.seedLearner(t, branch.ID, "JSS1", "CGS/AB/25/001")

	today := env.seedExam(t, branch.ID, "JSS1", testNow.Add(-time.Hour))
	env.seedExam(t, branch.ID, "JSS1", testNow.Add(24*time.Hour))
	env.seedExam(t, branch.ID, "JSS2", testNow.Add(-time.Hour))
	env.seedExam(t, other.ID, "JSS1", testNow.Add(-time.Hour))

	exams, err := NewExamService(env.deps).ListForLearner(context.Background(), learnerPrincipal(learner))
	if err != nil {
		t.Fatalf("ListForLearner() error = %v", err)
	}
	if len(exams) != 1 || exams[0].ID != today.ID {
		t.Fatalf("expected only today's exam, got %+v", exams)
	}
}

func TestExamService_ListForLearnerSpecialization(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	learner := env.seedLearner(t, branch.ID, "SS2", "CGS/AB/25/001")
	sciences := models.SpecializationSciences
	learner.Specialization = &sciences
	if err := env.repo.Account().Update(context.Background(), learner); err != nil {
		t.Fatal(err)
	}

	general := env.seedExam(t, branch.ID, "SS2", testNow)
	science := env.seedExam(t, branch.ID, "SS2", testNow)
	arts := env.seedExam(t, branch.ID, "SS2", testNow)
	for exam, spec := range map[*models.Exam]models.Specialization{science: models.SpecializationSciences, arts: models.SpecializationArts} {
		spec := spec
		exam.Specialization = &spec
		if err := env.repo.Exam().Update(context.Background(), exam); err != nil {
			t.Fatal(err)
		}
	}

	exams, err := NewExamService(env.deps).ListForLearner(context.Background(), learnerPrincipal(learner))
	if err != nil {
		t.Fatalf("ListForLearner() error = %v", err)
	}
	got := map[uint]bool{}
	for _, e := range exams {
		got[e.ID] = true
	}
	if !got[general.ID] || !got[science.ID] || got[arts.ID] {
		t.Fatalf("unexpected exam list %v", got)
	}
}

func TestExamService_ListScopesBranchAdmins(t *testing.T) {
	env := newTestEnv(t)
	branch := env.seedBranch(t, "Abuja", "AB")
	other := env.seedBranch(t, "Lagos", "LG")
	env.seedExam(t, branch.ID, "JSS1", testNow)
	env.seedExam(t, other.ID, "JSS1", testNow)

	resp, err := NewExamService(env.deps).List(context.Background(), models.ExamFilters{}, staffPrincipal(9, models.RoleBranchAdmin, branch.ID))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 || resp.Exams[0].BranchID != branch.ID {
		t.Fatalf("expected one exam of the admin's branch, got %+v", resp)
	}
}
