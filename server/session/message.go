package session

// command is an inbound client message. The fields used depend on the Type.
type command struct {
	// ID is an opaque client supplied identifier echoed in responses, so the
	// client can match replies to requests.
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	Pos    [3]int     `json:"pos,omitempty"`
	To     [3]float64 `json:"to,omitempty"`
	Block  blockInfo  `json:"block,omitempty"`
	Delay  int64      `json:"delay,omitempty"`
	Radius int        `json:"radius,omitempty"`
}

type blockInfo struct {
	ID   uint8 `json:"id"`
	Meta uint8 `json:"meta"`
}

type chunkMessage struct {
	Type          string           `json:"type"`
	X             int32            `json:"x"`
	Z             int32            `json:"z"`
	Payload       []byte           `json:"payload"`
	BlockEntities []map[string]any `json:"block_entities,omitempty"`
}

type hideChunkMessage struct {
	Type string `json:"type"`
	X    int32  `json:"x"`
	Z    int32  `json:"z"`
}

type blockUpdateMessage struct {
	Type  string    `json:"type"`
	Pos   [3]int    `json:"pos"`
	Block blockInfo `json:"block"`
}

type blockEntityMessage struct {
	Type string         `json:"type"`
	Pos  [3]int         `json:"pos"`
	Data map[string]any `json:"data"`
}

type lightUpdateMessage struct {
	Type  string `json:"type"`
	Pos   [3]int `json:"pos"`
	Sky   uint8  `json:"sky"`
	Block uint8  `json:"block"`
}

type entityMessage struct {
	Type       string     `json:"type"`
	EntityID   int64      `json:"entity_id"`
	EntityType string     `json:"entity_type,omitempty"`
	Name       string     `json:"name,omitempty"`
	Pos        [3]float64 `json:"pos,omitempty"`
	Vel        [3]float64 `json:"vel,omitempty"`
}

type timeMessage struct {
	Type string `json:"type"`
	Time int    `json:"time"`
}

type blockResultMessage struct {
	Type      string    `json:"type"`
	CommandID string    `json:"command_id,omitempty"`
	Pos       [3]int    `json:"pos"`
	Block     blockInfo `json:"block"`
	Light     uint8     `json:"light"`
}

type ackMessage struct {
	Type      string `json:"type"`
	CommandID string `json:"command_id,omitempty"`
	Count     int    `json:"count,omitempty"`
}

type errorMessage struct {
	Type      string `json:"type"`
	CommandID string `json:"command_id,omitempty"`
	Message   string `json:"message"`
}
