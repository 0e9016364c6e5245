package records

// Role is the acting user's role, supplied by the authentication layer.
type Role string

const (
	RoleAdmin               Role = "admin"
	RoleDoctor              Role = "doctor"
	RoleNurse               Role = "nurse"
	RoleLabTechnician       Role = "lab_technician"
	RoleRadiologyTechnician Role = "radiology_technician"
	RoleReceptionist        Role = "receptionist"
	RolePatient             Role = "patient"
)

// Action is an operation on a record list.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAnalyze Action = "analyze"
)

var allRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleLabTechnician, RoleRadiologyTechnician, RoleReceptionist, RolePatient}

var staffRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleLabTechnician, RoleRadiologyTechnician, RoleReceptionist}

var permissions = map[Kind]map[Action][]Role{
	KindLab: {
		ActionView:    allRoles,
		ActionCreate:  {RoleAdmin, RoleDoctor},
		ActionUpdate:  {RoleAdmin, RoleDoctor, RoleLabTechnician, RoleNurse},
		ActionDelete:  {RoleAdmin, RoleDoctor},
		ActionAnalyze: staffRoles,
	},
	KindRadiology: {
		ActionView:    allRoles,
		ActionCreate:  {RoleAdmin, RoleDoctor},
		ActionUpdate:  {RoleAdmin, RoleDoctor, RoleRadiologyTechnician},
		ActionDelete:  {RoleAdmin, RoleDoctor},
		ActionAnalyze: staffRoles,
	},
}

// CanPerform reports whether role may perform action on records of kind.
// Unknown roles, actions and kinds are denied.
func CanPerform(role Role, action Action, kind Kind) bool {
	for _, r := range permissions[kind][action] {
		if r == role {
			return true
		}
	}
	return false
}
