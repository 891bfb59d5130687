package service

import "strings"

// Routes understood by the view layer.
const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
)

// SessionRoute is the deep-linkable route of a room.
func SessionRoute(roomUUID string) string {
	return "/session/" + roomUUID
}

// IsSessionRoute reports whether route points at a room.
func IsSessionRoute(route string) bool {
	return strings.HasPrefix(route, "/session/") && len(route) > len("/session/")
}

// Navigator moves the view away from a room. Implementations must not block.
type Navigator interface {
	// Home is called after the user left or deleted the room.
	Home()
	// Login is called when the API rejects the token; from is the route to
	// return to after logging in.
	Login(from string)
}

// NopNavigator ignores navigation requests.
type NopNavigator struct{}

func (NopNavigator) Home()        {}
func (NopNavigator) Login(string) {}

// NavigatorFuncs adapts plain functions to Navigator. Nil fields are ignored.
type NavigatorFuncs struct {
	OnHome  func()
	OnLogin func(from string)
}

func (n NavigatorFuncs) Home() {
	if n.OnHome != nil {
		n.OnHome()
	}
}

func (n NavigatorFuncs) Login(from string) {
	if n.OnLogin != nil {
		n.OnLogin(from)
	}
}
