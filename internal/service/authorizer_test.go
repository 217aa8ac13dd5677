package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

func TestRoleAuthorizer(t *testing.T) {
	authorizer := NewRoleAuthorizer()
	assignment := models.Assignment{ID: 1, TeacherID: teacher.ID}

	require.True(t, authorizer.CanManage(admin, assignment))
	require.True(t, authorizer.CanManage(teacher, assignment))
	require.True(t, authorizer.CanManage(Actor{ID: teacher.ID, Role: " Teacher "}, assignment))
	require.False(t, authorizer.CanManage(otherTeacher, assignment))
	require.False(t, authorizer.CanManage(Actor{ID: teacher.ID, Role: RoleStudent}, assignment))

	require.True(t, authorizer.CanGrade(teacher, assignment))
	require.False(t, authorizer.CanGrade(studentA, assignment))

	require.True(t, authorizer.CanSubmit(studentA, assignment, studentA.ID))
	require.False(t, authorizer.CanSubmit(studentA, assignment, studentB.ID))
	require.False(t, authorizer.CanSubmit(teacher, assignment, teacher.ID))
	require.True(t, authorizer.CanSubmit(admin, assignment, studentB.ID))

	require.True(t, authorizer.CanViewSubmission(studentA, assignment, studentA.ID))
	require.True(t, authorizer.CanViewSubmission(teacher, assignment, studentA.ID))
	require.False(t, authorizer.CanViewSubmission(studentB, assignment, studentA.ID))

	require.True(t, authorizer.CanCreate(teacher, teacher.ID))
	require.False(t, authorizer.CanCreate(teacher, otherTeacher.ID))
	require.False(t, authorizer.CanCreate(studentA, studentA.ID))
	require.True(t, authorizer.CanCreate(admin, teacher.ID))
}
