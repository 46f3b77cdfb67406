package db

// Activity represents a single device state transition recorded in the log
type Activity struct {
	ID            string `json:"id"`
	DeviceID      string `json:"deviceId"`
	DeviceName    string `json:"deviceName"`
	RoomID        string `json:"roomId"`
	RoomName      string `json:"roomName"`
	State         bool   `json:"state"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	EnvironmentID string `json:"environmentId"`
	Timestamp     int64  `json:"timestamp"`
	Date          string `json:"date"`
}

// UserStat represents the rollup row for one user in one environment
type UserStat struct {
	UserID             string                `json:"userId"`
	UserName           string                `json:"userName"`
	EnvironmentID      string                `json:"environmentId"`
	TotalActivations   int                   `json:"totalActivations"`
	TotalDeactivations int                   `json:"totalDeactivations"`
	Devices            map[string]DeviceStat `json:"devices"`
	LastActivity       int64                 `json:"lastActivity"`
	FirstActivity      int64                 `json:"firstActivity"`
}

// DeviceStat represents the per-device counters nested in a UserStat
type DeviceStat struct {
	DeviceName    string `json:"deviceName"`
	Activations   int    `json:"activations"`
	Deactivations int    `json:"deactivations"`
	LastAccess    int64  `json:"lastAccess"`
}

// UserStatKey returns the composite key under which a user's rollup is stored
func UserStatKey(environmentID, userID string) string {
	return environmentID + "_" + userID
}
