package funcs

import (
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TemplateFuncs = template.FuncMap{
	"formatTime": formatTime,
	"formatDate": formatDate,
	"titleCase":  titleCase,
	"upper":      strings.ToUpper,
	"lower":      strings.ToLower,
	"yearNow":    yearNow,
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 at 15:04")
}

func formatDate(t time.Time) string {
	return t.Format("02 January 2006")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func yearNow() int {
	return time.Now().Year()
}
