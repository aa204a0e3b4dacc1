package vault

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the wire format for all frontmatter dates.
const DateFormat = "2006-01-02"

// Priority is the lifecycle tier of a resource. P0 never expires; P1
// and P2 expire after their default TTL unless overridden.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// DefaultTTLDays maps a priority to its default time-to-live in days.
// P0 is intentionally absent: permanent resources carry no expire date.
var DefaultTTLDays = map[Priority]int{
	PriorityP1: 90,
	PriorityP2: 30,
}

// Fields is the frontmatter key/value set of a resource. Values must
// not contain newlines or a literal "---"; a value may contain colons
// past the first one but keys may not. These are format limitations
// carried over for compatibility, not enforced invariants.
type Fields map[string]string

// fieldOrder fixes the serialization order of well-known keys so that
// rebuilt resources diff cleanly. Unknown keys follow, sorted.
var fieldOrder = []string{
	"id", "date", "created", "due", "status", "priority_label",
	"category", "tags", "importance",
	"priority", "expire",
	"activity_log", "last_activity",
}

// ParseFrontmatter splits a resource into its frontmatter fields and
// body. A resource without a leading "---" delimiter yields empty
// fields and the full content as body.
func ParseFrontmatter(content string) (Fields, string) {
	if !strings.HasPrefix(content, "---") {
		return Fields{}, content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return Fields{}, content
	}

	fields := Fields{}
	for _, line := range strings.Split(strings.TrimSpace(parts[1]), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields, strings.TrimSpace(parts[2])
}

// BuildFrontmatter renders fields and body into the on-disk format:
// a "---" delimited key:value header followed by the body.
func BuildFrontmatter(fields Fields, body string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	for _, key := range orderedKeys(fields) {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(fields[key])
		sb.WriteString("\n")
	}
	sb.WriteString("---")
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
	}
	return sb.String()
}

func orderedKeys(fields Fields) []string {
	known := make(map[string]bool, len(fieldOrder))
	var keys []string
	for _, k := range fieldOrder {
		known[k] = true
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range fields {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// AddLifecycle returns a copy of fields tagged with the given priority
// and the matching expire date computed from today. Pass ttlDays < 0 to
// use the priority's default TTL; P0 resources never carry an expire
// field regardless of ttlDays.
func AddLifecycle(fields Fields, priority Priority, ttlDays int, today time.Time) Fields {
	out := make(Fields, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out["priority"] = string(priority)

	if priority == PriorityP0 {
		delete(out, "expire")
		return out
	}
	if ttlDays < 0 {
		ttlDays = DefaultTTLDays[priority]
	}
	out["expire"] = today.AddDate(0, 0, ttlDays).Format(DateFormat)
	return out
}

// IsExpired reports whether a resource has passed its expire date. A
// resource with expire equal to today is still valid; only strictly
// later days count. P0 resources and resources with missing or
// malformed expire dates are never expired.
func IsExpired(fields Fields, today time.Time) bool {
	if Priority(fields["priority"]) == PriorityP0 {
		return false
	}
	raw := fields["expire"]
	if raw == "" {
		return false
	}
	expire, err := time.Parse(DateFormat, raw)
	if err != nil {
		return false
	}
	day, _ := time.Parse(DateFormat, today.Format(DateFormat))
	return day.After(expire)
}

// AddClassification stamps classifier output onto fields in place.
func AddClassification(fields Fields, category string, tags []string, importance int) Fields {
	fields["category"] = category
	fields["tags"] = strings.Join(tags, ",")
	fields["importance"] = strconv.Itoa(importance)
	return fields
}

// ParseTags splits a comma-separated tags value into a list.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ActivityEntry is one day of recorded activity on a task resource.
type ActivityEntry struct {
	Date    string
	Count   int
	Sources []string
}

// AppendActivity records one activity occurrence for date/source in the
// activity_log field, incrementing the day's count and unioning its
// sources, and advances last_activity.
//
// Wire format: date:count:src1,src2|date:count:src1
func AppendActivity(fields Fields, date string, source string) Fields {
	entries := ParseActivityLog(fields["activity_log"])
	found := false
	for i := range entries {
		if entries[i].Date != date {
			continue
		}
		entries[i].Count++
		if !contains(entries[i].Sources, source) {
			entries[i].Sources = append(entries[i].Sources, source)
		}
		found = true
		break
	}
	if !found {
		entries = append(entries, ActivityEntry{Date: date, Count: 1, Sources: []string{source}})
	}
	fields["activity_log"] = serializeActivity(entries)
	fields["last_activity"] = date
	return fields
}

// ParseActivityLog decodes an activity_log value. Malformed segments
// are skipped.
func ParseActivityLog(raw string) []ActivityEntry {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries []ActivityEntry
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments := strings.SplitN(part, ":", 3)
		if len(segments) < 3 {
			continue
		}
		count, err := strconv.Atoi(segments[1])
		if err != nil {
			continue
		}
		var sources []string
		for _, s := range strings.Split(segments[2], ",") {
			if s != "" {
				sources = append(sources, s)
			}
		}
		entries = append(entries, ActivityEntry{Date: segments[0], Count: count, Sources: sources})
	}
	return entries
}

func serializeActivity(entries []ActivityEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", e.Date, e.Count, strings.Join(e.Sources, ",")))
	}
	return strings.Join(parts, "|")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
