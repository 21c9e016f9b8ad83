package source

import (
	"context"
	"sort"
	"time"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// AnnualEvent is a recurring dated occurrence.
type AnnualEvent struct {
	Name        string
	Description string
	Month       time.Month
	Day         int
	Category    string
}

// DefaultAnnualEvents is the built-in holiday and commerce calendar.
var DefaultAnnualEvents = []AnnualEvent{
	{"元日", "新年の始まり", time.January, 1, "lifestyle"},
	{"バレンタインデー", "愛の日", time.February, 14, "lifestyle"},
	{"ホワイトデー", "バレンタインのお返しの日", time.March, 14, "lifestyle"},
	{"エイプリルフール", "嘘をついても許される日", time.April, 1, "entertainment"},
	{"こどもの日", "子供の健やかな成長を祝う日", time.May, 5, "lifestyle"},
	{"七夕", "織姫と彦星が会う日", time.July, 7, "lifestyle"},
	{"ハロウィン", "仮装を楽しむ日", time.October, 31, "entertainment"},
	{"クリスマス", "イエス・キリストの誕生を祝う日", time.December, 25, "lifestyle"},
	{"大晦日", "年の最後の日", time.December, 31, "lifestyle"},
	{"プログラマーの日", "年の256日目を祝う日", time.September, 13, "technology"},
	{"ブラックフライデー", "感謝祭の翌日の大型セール", time.November, 24, "business"},
	{"サイバーマンデー", "ブラックフライデーの次の月曜日", time.November, 27, "business"},
}

// DefaultCalendarLimit is how many of the nearest events Collect returns.
const DefaultCalendarLimit = 5

// Calendar emits annual events for this year and next, nearest to today first.
type Calendar struct {
	events []AnnualEvent
	limit  int
	now    func() time.Time
}

// NewCalendar creates a calendar adapter. A nil events list uses the
// defaults; limit <= 0 uses DefaultCalendarLimit.
func NewCalendar(events []AnnualEvent, limit int) *Calendar {
	if events == nil {
		events = DefaultAnnualEvents
	}
	if limit <= 0 {
		limit = DefaultCalendarLimit
	}
	return &Calendar{events: events, limit: limit, now: time.Now}
}

func (c *Calendar) Name() string               { return "calendar" }
func (c *Calendar) Origin() signal.Origin      { return signal.OriginCalendar }
func (c *Calendar) MinInterval() time.Duration { return time.Second }

func (c *Calendar) Collect(ctx context.Context) ([]RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, collectionErr(c.Name(), err)
	}
	events := c.Upcoming()
	if len(events) > c.limit {
		events = events[:c.limit]
	}
	items := make([]RawItem, len(events))
	for i, e := range events {
		items[i] = e
	}
	return items, nil
}

// Upcoming returns every generated event sorted by distance from today.
func (c *Calendar) Upcoming() []CalendarEvent {
	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	events := make([]CalendarEvent, 0, 2*len(c.events))
	for _, year := range []int{today.Year(), today.Year() + 1} {
		for _, e := range c.events {
			events = append(events, CalendarEvent{
				Name:        e.Name,
				Description: e.Description,
				Date:        time.Date(year, e.Month, e.Day, 0, 0, 0, 0, time.UTC),
				Category:    e.Category,
				Recurring:   true,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return absDuration(events[i].Date.Sub(today)) < absDuration(events[j].Date.Sub(today))
	})
	return events
}

// EventsOn returns the events falling on the given day.
func (c *Calendar) EventsOn(day time.Time) []CalendarEvent {
	var out []CalendarEvent
	for _, e := range c.Upcoming() {
		if e.Date.Year() == day.Year() && e.Date.YearDay() == day.YearDay() {
			out = append(out, e)
		}
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
