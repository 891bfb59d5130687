package remote

import (
	"net/url"
	"strconv"
)

const (
	pathMe            = "/auth/me"
	pathLogin         = "/auth/login"
	pathRegister      = "/auth/register"
	pathSessions      = "/sessions/"
	pathCreateSession = "/sessions/create"
)

func sessionPath(uuid string) string { return "/sessions/" + url.PathEscape(uuid) }
func managePath(uuid string) string  { return sessionPath(uuid) + "/manage" }
func leavePath(uuid string) string   { return sessionPath(uuid) + "/leave" }
func tasksPath(uuid string) string   { return sessionPath(uuid) + "/tasks" }
func addTaskPath(uuid string) string { return tasksPath(uuid) + "/add" }

func taskPath(uuid string, taskID int64) string {
	return tasksPath(uuid) + "/" + strconv.FormatInt(taskID, 10)
}

// deleteTaskPath does not follow the /sessions/{uuid}/tasks layout; the API
// routes deletes through /sessions/task/{uuid}/delete/{id}.
func deleteTaskPath(uuid string, taskID int64) string {
	return "/sessions/task/" + url.PathEscape(uuid) + "/delete/" + strconv.FormatInt(taskID, 10)
}
