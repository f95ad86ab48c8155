package process

import (
	"bytes"
	"strings"
	"sync"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser extracts a log level and message from one output line.
type LogParser func(line string) (level, msg string)

func (p *Process) capturing() bool {
	return p.outputHandler != nil || p.logParser != nil || p.processLogger != nil
}

func (p *Process) handleLine(source, line string) {
	if p.outputHandler != nil {
		p.outputHandler.HandleLine(source, line)
	}

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	level, msg := "info", line
	if p.logParser != nil {
		level, msg = p.logParser(line)
	}

	switch level {
	case "fatal", "error":
		logger.Error(msg, "source", source)
	case "warning":
		logger.Warn(msg, "source", source)
	case "debug", "trace":
		logger.Debug(msg, "source", source)
	default:
		logger.Info(msg, "source", source)
	}
}

// ParseDriverLogLevel understands chromedriver's log prefix,
// "[1712345678.123][SEVERE]: message". Lines without the prefix, such as
// the "Starting ChromeDriver ..." banner, are info.
func ParseDriverLogLevel(line string) (level, msg string) {
	if !strings.HasPrefix(line, "[") {
		return "info", line
	}
	rest := line[1:]
	end := strings.Index(rest, "][")
	if end < 0 {
		return "info", line
	}
	rest = rest[end+2:]
	levelEnd := strings.IndexByte(rest, ']')
	if levelEnd < 0 {
		return "info", line
	}

	msg = strings.TrimSpace(strings.TrimPrefix(rest[levelEnd+1:], ":"))
	switch strings.ToUpper(rest[:levelEnd]) {
	case "SEVERE":
		return "error", msg
	case "WARNING":
		return "warning", msg
	case "DEBUG", "ALL", "FINE", "FINER", "FINEST":
		return "debug", msg
	default:
		return "info", msg
	}
}

// lineWriter splits written bytes into lines. It is used as cmd.Stdout so
// exec owns the pipe and Wait does not race with our reads.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(line string)
}

func newLineWriter(emit func(line string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		w.emit(line)
	}
	return len(b), nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
}
