package service

import (
	"strings"

	"github.com/noah-isme/gema-classroom-api/internal/models"
)

// Roles understood by the default authorizer.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Actor is the authenticated caller performing an operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) role() string {
	return strings.ToLower(strings.TrimSpace(a.Role))
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.role() == RoleAdmin }

// IsTeacher reports whether the actor holds the teacher role.
func (a Actor) IsTeacher() bool { return a.role() == RoleTeacher }

// IsStudent reports whether the actor holds the student role.
func (a Actor) IsStudent() bool { return a.role() == RoleStudent }

// Authorizer decides whether an actor may act on an assignment.
type Authorizer interface {
	CanCreate(actor Actor, teacherID uint) bool
	CanManage(actor Actor, assignment models.Assignment) bool
	CanGrade(actor Actor, assignment models.Assignment) bool
	CanSubmit(actor Actor, assignment models.Assignment, studentID uint) bool
	CanViewSubmission(actor Actor, assignment models.Assignment, studentID uint) bool
}

type roleAuthorizer struct{}

// NewRoleAuthorizer returns the default policy: admins may do anything, teachers manage
// and grade the assignments they own, students submit and read their own work.
func NewRoleAuthorizer() Authorizer {
	return roleAuthorizer{}
}

func (roleAuthorizer) CanCreate(actor Actor, teacherID uint) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsTeacher() && actor.ID == teacherID
}

func (roleAuthorizer) CanManage(actor Actor, assignment models.Assignment) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsTeacher() && actor.ID != 0 && actor.ID == assignment.TeacherID
}

func (r roleAuthorizer) CanGrade(actor Actor, assignment models.Assignment) bool {
	return r.CanManage(actor, assignment)
}

func (roleAuthorizer) CanSubmit(actor Actor, _ models.Assignment, studentID uint) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsStudent() && actor.ID != 0 && actor.ID == studentID
}

func (r roleAuthorizer) CanViewSubmission(actor Actor, assignment models.Assignment, studentID uint) bool {
	if r.CanManage(actor, assignment) {
		return true
	}
	return actor.IsStudent() && actor.ID != 0 && actor.ID == studentID
}
