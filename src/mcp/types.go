package mcp

// SessionEntry is the snapshot of one session reported by list/status.

type SessionEntry struct {
	SessionID       string `json:"session_id"`
	Protocol        string `json:"protocol"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	SessionType     string `json:"session_type"`
	DeviceID        string `json:"device_id,omitempty"`
	State           string `json:"state"`
	PTYEnabled      bool   `json:"pty_enabled"`
	Cols            int    `json:"cols"`
	Rows            int    `json:"rows"`
	CreatedAtMS     int64  `json:"created_at_ms"`
	LastActivityMS  int64  `json:"last_activity_ms"`
	BytesIn         uint64 `json:"bytes_in"`
	BytesOut        uint64 `json:"bytes_out"`
	LockedByTaskID  string `json:"locked_by_task_id,omitempty"`
	LockExpiresAtMS int64  `json:"lock_expires_at_ms,omitempty"`
}

// Capabilities is the fixed capability set a list call reports.

type Capabilities struct {
	SupportsSplitStdoutStderr bool `json:"supports_split_stdout_stderr"`
	SupportsExitCode          bool `json:"supports_exit_code"`
	SupportsResize            bool `json:"supports_resize"`
}

var fixedCapabilities = Capabilities{
	SupportsSplitStdoutStderr: false,
	SupportsExitCode:          true,
	SupportsResize:            true,
}

// SessionInput is the single input shape for ptyctl_session; only the
// fields relevant to Action are read.
type SessionInput struct {
	Action string `json:"action" jsonschema:"one of open, close, list, lock, unlock, heartbeat, status"`

	// open
	Protocol         string `json:"protocol,omitempty" jsonschema:"ssh or telnet"`
	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	Username         string `json:"username,omitempty"`
	SessionType      string `json:"session_type,omitempty" jsonschema:"normal or console"`
	DeviceID         string `json:"device_id,omitempty"`
	PTYEnabled       *bool  `json:"pty_enabled,omitempty"`
	Cols             int    `json:"cols,omitempty"`
	Rows             int    `json:"rows,omitempty"`
	TermType         string `json:"term_type,omitempty"`
	ConnectTimeoutMS int64  `json:"connect_timeout_ms,omitempty"`
	IdleTimeoutMS    int64  `json:"idle_timeout_ms,omitempty"`
	LineEnding       string `json:"line_ending,omitempty" jsonschema:"telnet only: cr, crlf, lf, pass_through"`

	HostKeyPolicy    string   `json:"host_key_policy,omitempty"`
	KnownHostsPath   string   `json:"known_hosts_path,omitempty"`
	DisableConfig    bool     `json:"disable_config,omitempty"`
	ConfigPath       string   `json:"config_path,omitempty"`
	AuthMethod       string   `json:"auth_method,omitempty" jsonschema:"agent or password"`
	ExtraArgs        []string `json:"extra_args,omitempty"`
	KeyPEM           string   `json:"key_pem,omitempty" jsonschema:"a private key in PEM form, written to a restricted-permission temp file for the life of the session"`

	AcquireLock bool  `json:"acquire_lock,omitempty"`
	LockTTLMS   int64 `json:"lock_ttl_ms,omitempty"`

	// close
	SessionID string `json:"session_id,omitempty"`
	Force     bool   `json:"force,omitempty"`

	// lock/unlock/heartbeat
	TaskID string `json:"task_id,omitempty"`
	TTLMS  int64  `json:"ttl_ms,omitempty"`
}

// SessionOutput is the single output shape for ptyctl_session; unused
// fields are omitted by action.
type SessionOutput struct {
	SessionID         string `json:"session_id,omitempty"`
	ExistingSessionID string `json:"existing_session_id,omitempty"`
	Protocol          string `json:"protocol,omitempty"`
	PTYEnabled        bool   `json:"pty_enabled,omitempty"`
	SecurityWarning   string `json:"security_warning,omitempty"`

	Sessions     []SessionEntry `json:"sessions,omitempty"`
	Capabilities *Capabilities  `json:"capabilities,omitempty"`

	Entry *SessionEntry `json:"entry,omitempty"`
}

// IOWriteInput is ptyctl_session_io's input for both the write and the read
// action; only the fields relevant to Action are read.
type IOWriteInput struct {
	Action    string `json:"action" jsonschema:"write or read"`
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id,omitempty"`

	Data      string `json:"data,omitempty"`
	Encoding  string `json:"encoding,omitempty" jsonschema:"utf-8 or base64 (utf8/utf_8 accepted as aliases)"`
	Key       string `json:"key,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`

	Mode           string   `json:"mode,omitempty" jsonschema:"cursor or tail, default cursor"`
	Cursor         string   `json:"cursor,omitempty"`
	TimeoutMS      int64    `json:"timeout_ms,omitempty"`
	MaxBytes       int      `json:"max_bytes,omitempty"`
	MaxLines       *int     `json:"max_lines,omitempty"`
	UntilRegex     string   `json:"until_regex,omitempty"`
	IncludeMatch   bool     `json:"include_match,omitempty"`
	UntilIdleMS    *int64   `json:"until_idle_ms,omitempty"`
	WaitForRegexes []string `json:"wait_for_regexes,omitempty"`
}

// IOOutput is ptyctl_session_io's unified output.
type IOOutput struct {
	BytesWritten int    `json:"bytes_written,omitempty"`
	Encoding     string `json:"encoding,omitempty"`

	Data            string `json:"data,omitempty"`
	NextCursor      string `json:"next_cursor,omitempty"`
	Matched         bool   `json:"matched,omitempty"`
	TimedOut        bool   `json:"timed_out,omitempty"`
	IdleReached     bool   `json:"idle_reached,omitempty"`
	EOF             bool   `json:"eof,omitempty"`
	Truncated       bool   `json:"truncated,omitempty"`
	DroppedBytes    uint64 `json:"dropped_bytes,omitempty"`
	WaitingForInput bool   `json:"waiting_for_input,omitempty"`
	BufferedBytes   int    `json:"buffered_bytes,omitempty"`
	BufferLimit     int    `json:"buffer_limit_bytes,omitempty"`
}

// ConfigInput is ptyctl_session_config's input.
type ConfigInput struct {
	Action    string `json:"action" jsonschema:"resize, expect, or get"`
	SessionID string `json:"session_id"`

	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`

	PromptRegex  string   `json:"prompt_regex,omitempty"`
	PagerRegexes []string `json:"pager_regexes,omitempty"`
	ErrorRegexes []string `json:"error_regexes,omitempty"`
}

// ConfigOutput is ptyctl_session_config's unified output.
type ConfigOutput struct {
	Entry *SessionEntry `json:"entry,omitempty"`
}

// ExecInput is ptyctl_session_exec's input.
type ExecInput struct {
	SessionID   string `json:"session_id"`
	Cmd         string `json:"cmd"`
	TimeoutMS   int64  `json:"timeout_ms"`
	UntilIdleMS *int64 `json:"until_idle_ms,omitempty"`
	TaskID      string `json:"task_id,omitempty"`

	RCModeEnabled      *bool  `json:"rc_mode_enabled,omitempty"`
	RCModeMarkerPrefix string `json:"rc_mode_marker_prefix,omitempty"`
	RCModeMarkerSuffix string `json:"rc_mode_marker_suffix,omitempty"`

	PromptRegex  string   `json:"prompt_regex,omitempty"`
	ErrorRegexes []string `json:"error_regexes,omitempty"`
}

// ExecOutput is ptyctl_session_exec's output.
type ExecOutput struct {
	Stdout         string   `json:"stdout"`
	Stderr         string   `json:"stderr"`
	ExitCode       *int     `json:"exit_code,omitempty"`
	ExitCodeReason string   `json:"exit_code_reason,omitempty"`
	DoneReason     string   `json:"done_reason"`
	TimedOut       bool     `json:"timed_out,omitempty"`
	PromptDetected bool     `json:"prompt_detected,omitempty"`
	ErrorHints     []string `json:"error_hints,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}
