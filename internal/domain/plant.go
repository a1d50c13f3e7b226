package domain

// PlantReading is the latest moisture report stored for a plant.
type PlantReading struct {
	Name          string  `json:"name"`
	MoistureLevel float64 `json:"moisture_level"`
}

// ControlCommand asks the device to actuate something on behalf of a plant.
// Only the "pump" action is supported; a non-zero Value switches the pump on.
type ControlCommand struct {
	PlantID string   `json:"plant_id"`
	Action  string   `json:"action"`
	Value   *float64 `json:"value,omitempty"`
}

// ActionPump is the only supported control action.
const ActionPump = "pump"
