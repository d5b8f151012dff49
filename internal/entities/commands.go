package entities

type AssignResourcesRequest struct {
	Resources []string `json:"resources" validate:"required,min=1"`
}

type ReleaseResourcesRequest struct {
	Resources []string `json:"resources" validate:"required,min=1"`
}

// ConfigureRequest is the parsed form of the configuration payload. The only
// contractually required key across device kinds is the configuration id;
// capability counts are validated against the declared capability types before
// anything is applied.
type ConfigureRequest struct {
	ID           string         `json:"id" validate:"required"`
	Capabilities map[string]int `json:"capabilities,omitempty"`
}

type ScanRequest struct {
	ID string `json:"id" validate:"required"`
}

type SetAdminModeRequest struct {
	AdminMode string `json:"adminMode" validate:"required"`
}

// CommandResponse is the synchronous reply to every operation invocation.
// Long-running outcomes are only observable through the published attributes.
type CommandResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

// AttributeChange is the payload published on attribute subjects and pushed to
// event-stream subscribers.
type AttributeChange struct {
	Device    string `json:"device"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}
