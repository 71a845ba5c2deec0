package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// maxLines of zero or less returns every line. A missing file yields no
// lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Attr is one key=value pair after the message.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text-handler line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   []Attr
	Raw     string
}

// Parse splits a slog text line (time=… level=… msg=… k=v…). Lines that do
// not look like one come back with only Raw set and ok false.
func Parse(line string) (Entry, bool) {
	entry := Entry{Raw: line}
	pairs := splitPairs(line)
	if len(pairs) == 0 {
		return entry, false
	}
	structured := false
	for _, p := range pairs {
		switch p.Key {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, p.Value); err == nil {
				entry.Time = t
			}
			structured = true
		case "level":
			entry.Level = strings.ToUpper(p.Value)
			structured = true
		case "msg":
			entry.Message = p.Value
			structured = true
		default:
			entry.Attrs = append(entry.Attrs, p)
		}
	}
	if !structured {
		return Entry{Raw: line}, false
	}
	return entry, true
}

// Attr returns the value of key.
func (e Entry) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// AtLeast reports whether the entry's level is floor or more severe. Unknown
// levels always pass.
func (e Entry) AtLeast(floor string) bool {
	have, ok := levelRank[e.Level]
	if !ok {
		return true
	}
	want, ok := levelRank[strings.ToUpper(floor)]
	if !ok {
		return true
	}
	return have >= want
}

func splitPairs(line string) []Attr {
	var pairs []Attr
	i := 0
	n := len(line)
	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		eq := strings.IndexByte(line[i:], '=')
		sp := strings.IndexByte(line[i:], ' ')
		if eq < 0 || (sp >= 0 && sp < eq) {
			return nil
		}
		key := line[i : i+eq]
		i += eq + 1

		var value string
		if i < n && line[i] == '"' {
			end := i + 1
			var b strings.Builder
			for end < n && line[end] != '"' {
				if line[end] == '\\' && end+1 < n {
					end++
					switch line[end] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					default:
						b.WriteByte(line[end])
					}
					end++
					continue
				}
				b.WriteByte(line[end])
				end++
			}
			value = b.String()
			i = end + 1
		} else {
			end := strings.IndexByte(line[i:], ' ')
			if end < 0 {
				end = n - i
			}
			value = line[i : i+end]
			i += end
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
	}
	return pairs
}
