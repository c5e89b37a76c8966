package auth

// Role is an actor's position in the platform.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleHOD      Role = "hod"
	RoleDean     Role = "dean"
	RoleConfig   Role = "config"
)

// Action is something an actor may attempt. Capability is evaluated once per
// request through Can, not via scattered role string comparisons.
type Action string

const (
	ActionOpenSession      Action = "session:open"
	ActionCloseSession     Action = "session:close"
	ActionSignSelf         Action = "record:sign"
	ActionListRecords      Action = "record:list"
	ActionVerifyRecord     Action = "record:verify"
	ActionManualSign       Action = "record:manual_sign"
	ActionAssistedSign     Action = "record:assisted_sign"
	ActionManageZones      Action = "zone:manage"
	ActionManageTimetables Action = "timetable:manage"
	ActionViewAdherence    Action = "adherence:view"
)

var capabilities = map[Role]map[Action]bool{
	RoleStudent: {
		ActionSignSelf: true,
	},
	RoleLecturer: {
		ActionOpenSession:  true,
		ActionCloseSession: true,
		ActionListRecords:  true,
		ActionVerifyRecord: true,
		ActionManualSign:   true,
		ActionAssistedSign: true,
	},
	RoleHOD: {
		ActionManageTimetables: true,
		ActionListRecords:      true,
		ActionViewAdherence:    true,
	},
	RoleDean: {
		ActionListRecords:   true,
		ActionViewAdherence: true,
	},
	RoleConfig: {
		ActionManageZones:      true,
		ActionManageTimetables: true,
	},
}

// ValidRole reports whether the role is one the platform knows.
func ValidRole(r Role) bool {
	_, ok := capabilities[r]
	return ok
}

// Can reports whether the role may attempt the action.
func Can(r Role, a Action) bool {
	return capabilities[r][a]
}
