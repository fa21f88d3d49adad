// Package logger schreibt bereichsbezogene Logs in eine rotierende Datei.
//
// Jeder Eintrag trägt Level und Bereich. Bereiche werden einzeln über
// [Debug] log_<bereich> in der Konfiguration freigeschaltet, sodass z.B.
// nur Keypad- und Vault-Ereignisse mitgeschrieben werden können.
package logger

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
)

// LogLevel is the severity of an entry.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (lv LogLevel) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	}
	return fmt.Sprintf("LEVEL(%d)", int(lv))
}

// LogArea tags an entry with the subsystem that produced it.
type LogArea string

const (
	AreaWebSocket LogArea = "websocket"
	AreaKeypad    LogArea = "keypad"
	AreaVault     LogArea = "vault"
	AreaAuth      LogArea = "auth"
	AreaGallery   LogArea = "gallery"
	AreaDatabase  LogArea = "database"
	AreaSecurity  LogArea = "security"
	AreaSession   LogArea = "session"
	AreaConfig    LogArea = "config"
	AreaGeneral   LogArea = "general"
)

var allAreas = []LogArea{
	AreaWebSocket, AreaKeypad, AreaVault, AreaAuth, AreaGallery,
	AreaDatabase, AreaSecurity, AreaSession, AreaConfig, AreaGeneral,
}

func (a LogArea) tag() string { return "[" + strings.ToUpper(string(a)) + "]" }

// Logger filtert Einträge nach Level und Bereich und reicht sie an die
// Datei weiter. Die Filter sind atomar, damit abgeschaltete Bereiche auf
// dem Keypad-Pfad nichts kosten.
type Logger struct {
	enabled atomic.Bool
	level   atomic.Int32
	mirror  atomic.Bool
	areas   map[LogArea]*atomic.Bool
	sink    *rotatingFile
}

var (
	std      *Logger
	initOnce sync.Once
)

// Initialize liest [Debug] und öffnet die Log-Datei. Weitere Aufrufe sind
// wirkungslos.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		std, err = newLogger()
	})
	return err
}

func newLogger() (*Logger, error) {
	l := newFiltered()
	l.mirror.Store(true)
	s := readSettings()
	l.apply(s)

	sink, err := openRotatingFile(s.path, s.maxBytes, s.keep)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.sink = sink
	return l, nil
}

func newFiltered() *Logger {
	l := &Logger{areas: make(map[LogArea]*atomic.Bool, len(allAreas))}
	for _, area := range allAreas {
		l.areas[area] = new(atomic.Bool)
	}
	return l
}

type settings struct {
	enabled  bool
	level    LogLevel
	path     string
	maxBytes int64
	keep     int
	areas    map[LogArea]bool
}

func readSettings() settings {
	s := settings{
		enabled:  configuration.GetBool("Debug", "enable_debug_logging", true),
		level:    parseLogLevel(configuration.GetString("Debug", "log_level", "INFO")),
		path:     configuration.GetString("Debug", "log_file", "calcvault.log"),
		maxBytes: int64(configuration.GetInt("Debug", "max_log_size_mb", 10)) << 20,
		keep:     configuration.GetInt("Debug", "log_rotation_count", 3),
		areas:    make(map[LogArea]bool, len(allAreas)),
	}
	for _, area := range allAreas {
		s.areas[area] = configuration.GetBool("Debug", "log_"+string(area), false)
	}
	return s
}

func (l *Logger) apply(s settings) {
	l.enabled.Store(s.enabled)
	l.level.Store(int32(s.level))
	for area, on := range s.areas {
		if flag, ok := l.areas[area]; ok {
			flag.Store(on)
		}
	}
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if !l.enabled.Load() || int32(level) < l.level.Load() {
		return false
	}
	flag, ok := l.areas[area]
	return ok && flag.Load()
}

// writeLog formatiert einen Eintrag. skip ist die Tiefe des eigentlichen
// Aufrufers im Stack, von writeLog aus gezählt.
func (l *Logger) writeLog(level LogLevel, area LogArea, skip int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	caller := "???"
	if _, file, line, ok := runtime.Caller(skip); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, " %-5s %s %s %s\n", level, area.tag(), caller, msg)

	if l.sink != nil {
		if _, err := l.sink.Write([]byte(b.String())); err != nil && l.mirror.Load() {
			log.Printf("logger: %v", err)
		}
	}
	if level >= WARN && l.mirror.Load() {
		log.Printf("%s %s %s", level, area.tag(), msg)
	}
}

func emit(level LogLevel, area LogArea, format string, args []interface{}) {
	if std != nil && std.shouldLog(level, area) {
		// emit -> Debug/Info/... -> Aufrufer
		std.writeLog(level, area, 3, format, args...)
	}
}

func Debug(area LogArea, format string, args ...interface{}) { emit(DEBUG, area, format, args) }
func Info(area LogArea, format string, args ...interface{})  { emit(INFO, area, format, args) }
func Warn(area LogArea, format string, args ...interface{})  { emit(WARN, area, format, args) }
func Error(area LogArea, format string, args ...interface{}) { emit(ERROR, area, format, args) }

// Fatal schreibt unabhängig von den Filtern und beendet den Prozess.
func Fatal(area LogArea, format string, args ...interface{}) {
	if std != nil {
		std.writeLog(FATAL, area, 2, format, args...)
		Close()
	}
	log.Fatalf("%s %s %s", FATAL, area.tag(), fmt.Sprintf(format, args...))
}

func WebSocketDebug(format string, args ...interface{}) { emit(DEBUG, AreaWebSocket, format, args) }
func WebSocketInfo(format string, args ...interface{})  { emit(INFO, AreaWebSocket, format, args) }
func WebSocketWarn(format string, args ...interface{})  { emit(WARN, AreaWebSocket, format, args) }
func WebSocketError(format string, args ...interface{}) { emit(ERROR, AreaWebSocket, format, args) }

func AuthDebug(format string, args ...interface{}) { emit(DEBUG, AreaAuth, format, args) }
func AuthInfo(format string, args ...interface{})  { emit(INFO, AreaAuth, format, args) }
func AuthWarn(format string, args ...interface{})  { emit(WARN, AreaAuth, format, args) }
func AuthError(format string, args ...interface{}) { emit(ERROR, AreaAuth, format, args) }

func SecurityInfo(format string, args ...interface{})  { emit(INFO, AreaSecurity, format, args) }
func SecurityWarn(format string, args ...interface{})  { emit(WARN, AreaSecurity, format, args) }
func SecurityError(format string, args ...interface{}) { emit(ERROR, AreaSecurity, format, args) }

func GalleryInfo(format string, args ...interface{})  { emit(INFO, AreaGallery, format, args) }
func GalleryWarn(format string, args ...interface{})  { emit(WARN, AreaGallery, format, args) }
func GalleryError(format string, args ...interface{}) { emit(ERROR, AreaGallery, format, args) }

// Vault: Entsperrungen und Passcode-Änderungen.
func VaultInfo(format string, args ...interface{}) { emit(INFO, AreaVault, format, args) }
func VaultWarn(format string, args ...interface{}) { emit(WARN, AreaVault, format, args) }

func ConfigInfo(format string, args ...interface{}) { emit(INFO, AreaConfig, format, args) }

// SetMirror controls whether WARN and above are also written to the
// standard log. The terminal UI turns this off while it owns the screen.
func SetMirror(enabled bool) {
	if std != nil {
		std.mirror.Store(enabled)
	}
}

// SetLevel changes the minimum level at runtime.
func SetLevel(level LogLevel) {
	if std != nil {
		std.level.Store(int32(level))
	}
}

// EnableArea schaltet einen Bereich bis zum Prozessende frei.
func EnableArea(area LogArea) {
	if std == nil {
		return
	}
	if flag, ok := std.areas[area]; ok {
		flag.Store(true)
	}
}

func ListAreas() []LogArea {
	return append([]LogArea(nil), allAreas...)
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	}
	return INFO
}

// Close flushes and closes the log file.
func Close() {
	if std != nil && std.sink != nil {
		std.sink.Close()
	}
}
