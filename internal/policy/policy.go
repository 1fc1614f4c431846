// Package policy decides whether an actor may perform an action on a
// project or task. It has no I/O; callers load the records first.
package policy

import (
	"tracker/internal/apperr"
	"tracker/internal/models"
)

// Action is an operation subject to authorization.
type Action int

const (
	ViewProject Action = iota
	UpdateProject
	DeleteProject
	InviteCollaborator
	CreateTask
	ListTasks
	ViewTask
	UpdateTask
	DeleteTask
)

func (a Action) String() string {
	switch a {
	case ViewProject:
		return "view project"
	case UpdateProject:
		return "update project"
	case DeleteProject:
		return "delete project"
	case InviteCollaborator:
		return "invite collaborator"
	case CreateTask:
		return "create task"
	case ListTasks:
		return "list tasks"
	case ViewTask:
		return "view task"
	case UpdateTask:
		return "update task"
	case DeleteTask:
		return "delete task"
	default:
		return "unknown action"
	}
}

type role int

const (
	roleNone role = iota
	roleCollaborator
	roleOwner
)

type rule struct {
	allow func(r role, creator bool) bool
	// hidden denials surface as NotFound so project existence is not disclosed.
	hidden bool
	deny   string
}

func ownerOnly(r role, _ bool) bool { return r == roleOwner }
func member(r role, _ bool) bool { return r == roleOwner || r == roleCollaborator }
func ownerOrCreator(r role, c bool) bool { return r == roleOwner || c }

var rules = map[Action]rule{
	ViewProject:        {allow: member, hidden: true, deny: "project not found"},
	UpdateProject:      {allow: ownerOnly, hidden: true, deny: "project not found or you're not the owner"},
	DeleteProject:      {allow: ownerOnly, deny: "only the project owner can delete this project"},
	InviteCollaborator: {allow: ownerOnly, deny: "only the project owner can add collaborators"},
	CreateTask:         {allow: member, deny: "you are not authorized to add tasks to this project"},
	ListTasks:          {allow: member, deny: "you are not authorized to view tasks of this project"},
	ViewTask:           {allow: member, deny: "you are not authorized to view this task"},
	UpdateTask:         {allow: ownerOrCreator, deny: "you are not authorized to update this task"},
	DeleteTask:         {allow: ownerOrCreator, deny: "you are not authorized to delete this task"},
}

func roleOf(actorID int64, project models.Project) role {
	switch {
	case project.IsOwner(actorID):
		return roleOwner
	case project.IsCollaborator(actorID):
		return roleCollaborator
	default:
		return roleNone
	}
}

// Allowed reports whether actorID may perform action. task is only consulted
// by task-scoped actions and may be nil otherwise.
func Allowed(actorID int64, action Action, project models.Project, task *models.Task) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	creator := task != nil && task.CreatorID == actorID && task.ProjectID == project.ID
	return r.allow(roleOf(actorID, project), creator)
}

// Authorize returns nil when the action is allowed, otherwise a NotFound or
// Forbidden error depending on whether the action discloses the project.
func Authorize(actorID int64, action Action, project models.Project, task *models.Task) error {
	if Allowed(actorID, action, project, task) {
		return nil
	}
	r, ok := rules[action]
	if !ok {
		return apperr.Newf(apperr.Forbidden, "%s is not permitted", action)
	}
	if r.hidden {
		return apperr.New(apperr.NotFound, r.deny)
	}
	return apperr.New(apperr.Forbidden, r.deny)
}
