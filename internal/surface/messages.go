package surface

import (
	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/wm"
)

// Message types sent to the page.
const (
	TypeMount        = "mount"
	TypeState        = "state"
	TypeFrame        = "frame"
	TypeOutro        = "outro"
	TypeDestroy      = "destroy"
	TypeBodyOverflow = "body_overflow"
)

// Message types received from the page.
const (
	TypeClose     = "close"
	TypeActivate  = "activate"
	TypeDrag      = "drag"
	TypeResize    = "resize"
	TypeOutroDone = "outro_done"
	TypeButton    = "button"
	TypeViewport  = "viewport"
	TypePlacement = "placement"
)

// Outbound is a server to page message.
type Outbound struct {
	Type   string         `json:"type"`
	ID     *wm.ID         `json:"id,omitempty"`
	Props  any            `json:"props,omitempty"`
	Rect   *geometry.Rect `json:"rect,omitempty"`
	Intro  bool           `json:"intro,omitempty"`
	Active *bool          `json:"active,omitempty"`
	Hidden *bool          `json:"hidden,omitempty"`
}

// Inbound is a page to server message. Fields not used by Type are zero.
type Inbound struct {
	Type      string             `json:"type"`
	ID        wm.ID              `json:"id"`
	DX        int                `json:"dx"`
	DY        int                `json:"dy"`
	DW        int                `json:"dw"`
	DH        int                `json:"dh"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Action    string             `json:"action"`
	Placement geometry.Placement `json:"placement"`
}

func idPtr(id wm.ID) *wm.ID { return &id }

func boolPtr(b bool) *bool { return &b }
