package entities

type AdminMode string

const (
	AdminModeOnline      AdminMode = "ONLINE"
	AdminModeOffline     AdminMode = "OFFLINE"
	AdminModeMaintenance AdminMode = "MAINTENANCE"
	AdminModeNotFitted   AdminMode = "NOT_FITTED"
	AdminModeReserved    AdminMode = "RESERVED"
)

func (m AdminMode) String() string {
	return string(m)
}

func ParseAdminMode(raw string) (mode AdminMode, ok bool) {
	switch AdminMode(raw) {
	case AdminModeOnline, AdminModeOffline, AdminModeMaintenance, AdminModeNotFitted, AdminModeReserved:
		return AdminMode(raw), true
	}

	return mode, false
}
