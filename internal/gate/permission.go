package gate

import "strings"

// Permission is an allowed action on a resource type, written
// "resource:action" (e.g. "invoice:finalize", "payment:record").
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards
const (
	WildcardAll              = "*"
	PermissionAll Permission = "*:*"
)

// Matches checks if this permission grants the requested one.
// "*:*" grants everything, "invoice:*" every invoice action and
// "*:view" the view action on every resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == WildcardAll || res == reqRes
	actOK := string(act) == WildcardAll || act == reqAct
	return resOK && actOK
}
