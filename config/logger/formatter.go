// Package logger configures logrus and implements a formatter that prefixes
// log messages with the program being ingested.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// NamespaceField is the log field used as message prefix
const NamespaceField = "program"

// NamespaceFormatter is a logrus formatter that moves the 'program' field
// into a message prefix for nicer text output. Entries without the field are
// passed through unchanged.
type NamespaceFormatter struct {
	Parent logrus.Formatter
}

// Format implements logrus.Formatter
func (f *NamespaceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if ns, exists := entry.Data[NamespaceField]; exists {
		entry.Message = fmt.Sprintf("[%-12s] %s", fmt.Sprint(ns), entry.Message)
	}
	return f.Parent.Format(entry)
}
