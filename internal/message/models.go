package message

import "time"

// Status is the delivery state of a DirectMessage. It only ever advances:
// sent -> delivered -> seen.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

// Rank orders statuses so that concurrent transitions can be resolved to
// the maximal one. Unknown statuses rank below sent.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusSeen:
		return 3
	default:
		return 0
	}
}

// below returns every valid status that ranks strictly below s. Used by the
// store as a guard clause so a status update can never regress a row.
func below(s Status) []Status {
	var out []Status
	for _, c := range []Status{StatusSent, StatusDelivered, StatusSeen} {
		if c.Rank() < s.Rank() {
			out = append(out, c)
		}
	}
	return out
}

// DirectMessage is one person-to-person message. The row is never physically
// removed; each participant hides it from their own history through their
// deletion flag, which never touches the other side's flag.
type DirectMessage struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender             string    `gorm:"index;size:64;not null" json:"from"`
	Receiver           string    `gorm:"index;size:64;not null" json:"to"`
	Body               string    `gorm:"type:text;not null" json:"msg"`
	Status             Status    `gorm:"size:16;not null;default:sent" json:"status"`
	DeletedForSender   bool      `gorm:"not null;default:false" json:"-"`
	DeletedForReceiver bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt          time.Time `json:"timestamp"`
}

// GroupMessage is append-only: never mutated, never deleted.
type GroupMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender    string    `gorm:"index;size:64;not null" json:"from"`
	Body      string    `gorm:"type:text;not null" json:"msg"`
	CreatedAt time.Time `json:"timestamp"`
}
