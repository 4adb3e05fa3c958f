package model

import "encoding/json"

const (
	MethodChat             = "chat"
	MethodCreate           = "create"
	MethodJoin             = "join"
	MethodStartMultiplayer = "start-multiplayer"
	MethodRender           = "render"
	MethodFinish           = "finish-multiplayer"
	MethodUserWrite        = "user_write"
	MethodUserRead         = "user_read"
	// MethodLeave is sent by the relay when a member disconnects.
	MethodLeave = "leave"
)

// error markers sent in the track field of a join reply
const (
	ErrorUnknownCode   = "ERROR1"
	ErrorRoomFull      = "ERROR2"
	ErrorClientVersion = "ERROR3"
)

// Packet is the single message shape on the relay websocket. The method
// field decides which of the other fields are used.
type Packet struct {
	Method      string          `json:"method"`
	Username    string          `json:"username,omitempty"`
	Message     string          `json:"message,omitempty"`
	Track       string          `json:"track,omitempty"`
	Code        string          `json:"code,omitempty"`
	Users       []string        `json:"users,omitempty"`
	Host        string          `json:"host,omitempty"`
	Ingame      bool            `json:"ingame"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Z           float64         `json:"z"`
	RR          float64         `json:"rr"`
	ElapsedTime float64         `json:"elapsedTime"`
	Info1       string          `json:"info1,omitempty"`
	Info2       string          `json:"info2,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Version     string          `json:"version,omitempty"`
}
