package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// Property names of the databases the assistant works with
const (
	PropName    = "Name"
	PropDate    = "Date"
	PropCreated = "Created"

	PropWeekday  = "День недели"
	PropNumber   = "Пара"
	PropSubject  = "Предмет"
	PropLecturer = "Преподаватель"
	PropRoom     = "Кабинет"
	PropWeek     = "Неделя"

	weekOdd  = "Нечетная"
	weekEven = "Четная"
)

var weekdays = map[string]time.Weekday{
	"Пн": time.Monday,
	"Вт": time.Tuesday,
	"Ср": time.Wednesday,
	"Чт": time.Thursday,
	"Пт": time.Friday,
	"Сб": time.Saturday,
	"Вс": time.Sunday,
}

func titleProperty(text string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: text}}},
	}
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// titleOf returns the plain text of the named title property
func titleOf(props notionapi.Properties, name string) string {
	if p, ok := props[name].(*notionapi.TitleProperty); ok {
		return plainText(p.Title)
	}
	return ""
}

func richTextOf(props notionapi.Properties, name string) string {
	if p, ok := props[name].(*notionapi.RichTextProperty); ok {
		return plainText(p.RichText)
	}
	return ""
}

func selectOf(props notionapi.Properties, name string) string {
	if p, ok := props[name].(*notionapi.SelectProperty); ok {
		return p.Select.Name
	}
	return ""
}

func numberOf(props notionapi.Properties, name string) (float64, bool) {
	if p, ok := props[name].(*notionapi.NumberProperty); ok {
		return p.Number, true
	}
	return 0, false
}

// dateOfProperty returns start and end of the named date property; ok is false when unset
func dateOfProperty(props notionapi.Properties, name string) (start, end time.Time, ok bool) {
	var obj *notionapi.DateObject
	if p, ok := props[name].(*notionapi.DateProperty); ok {
		obj = p.Date
	}
	if obj == nil || obj.Start == nil {
		return time.Time{}, time.Time{}, false
	}

	start = time.Time(*obj.Start)
	if obj.End != nil {
		end = time.Time(*obj.End)
	}
	return start, end, true
}

func parityOf(week string) Parity {
	switch week {
	case weekOdd:
		return OddWeeks
	case weekEven:
		return EvenWeeks
	default:
		return EveryWeek
	}
}
