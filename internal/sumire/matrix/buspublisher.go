package matrix

import (
	"context"
	"fmt"

	"github.com/bdobrica/Sumire/internal/sumire/bus"
)

var _ bus.Publisher = (*NoticePublisher)(nil)

// NoticePublisher posts settings-change events into a Matrix room as JSON
// notices. Co-resident skills on other hosts subscribe to the room instead
// of the in-process bus.
type NoticePublisher struct {
	noticer Noticer
	roomID  string
}

// NewNoticePublisher publishes events to roomID via noticer.
func NewNoticePublisher(noticer Noticer, roomID string) *NoticePublisher {
	return &NoticePublisher{noticer: noticer, roomID: roomID}
}

// Publish encodes the event and sends it as a room notice.
func (p *NoticePublisher) Publish(ctx context.Context, evt bus.Event) error {
	data, err := evt.Encode()
	if err != nil {
		return err
	}
	if err := p.noticer.SendNotice(ctx, p.roomID, string(data)); err != nil {
		return fmt.Errorf("publish settings change to %s: %w", p.roomID, err)
	}
	return nil
}
