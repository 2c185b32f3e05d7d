package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
	"github.com/SSRS-Innovation/redis-communication/pkg/stream"
)

type eventType int

const (
	Event eventType = iota
	Entry
	Corrupt
	Info
)

// console prints received messages for humans.
type console struct {
	aurora aurora.Aurora
	w      io.Writer
	now    func() time.Time
}

func newConsole(w io.Writer) *console {
	return &console{
		aurora: aurora.NewAurora(logging.IsTerminal()),
		w:      w,
		now:    time.Now,
	}
}

func (c *console) msg(evtType eventType, label string, ts codec.Timestamp, message ...interface{}) {
	kind := [...]aurora.Value{
		c.aurora.BgBlue("EVENT").White(),
		c.aurora.BgGreen("ENTRY").White(),
		c.aurora.BgRed("CORRUPT").White(),
		c.aurora.BgWhite("INFO").Black(),
	}[evtType]

	when := "-"
	if !ts.IsZero() {
		when = humanize.RelTime(ts.Time(), c.now(), "ago", "from now")
	}

	_, _ = fmt.Fprintf(c.w, "%s %s (%s) %s\n",
		kind,
		c.aurora.Cyan(label),
		when,
		fmt.Sprint(message...),
	)
}

func (c *console) event(channel string, ts codec.Timestamp, content interface{}) {
	c.msg(Event, channel, ts, render(content))
}

func (c *console) entry(name string, m stream.Message) {
	label := name + " " + m.ID.String()
	if m.Failed() {
		c.msg(Corrupt, label, m.Timestamp, m.Err)
		return
	}
	c.msg(Entry, label, m.Timestamp, render(m.Value))
}

func (c *console) info(label string, message ...interface{}) {
	c.msg(Info, label, codec.Timestamp{}, message...)
}

func render(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
