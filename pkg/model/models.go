package model

import "time"

// IdentifiedMedication is one drug recognized in a scanned image.
type IdentifiedMedication struct {
	Name               string   `json:"name"`
	GenericName        string   `json:"genericName,omitempty"`
	Purpose            string   `json:"purpose"`
	Strength           string   `json:"strength,omitempty"`
	Dosage             string   `json:"dosage"`
	Frequency          string   `json:"frequency"`
	Duration           string   `json:"duration"`
	BestTime           string   `json:"bestTime"`
	Instructions       string   `json:"instructions"`
	Storage            string   `json:"storage,omitempty"`
	ExpiryDate         string   `json:"expiryDate,omitempty"`
	ExpiryWarning      string   `json:"expiryWarning,omitempty"`
	SideEffects        []string `json:"sideEffects"`
	Warnings           []string `json:"warnings"`
	SymbolExplanations []string `json:"symbolExplanations,omitempty"`
}

// InteractionSeverity is the ordinal risk level of a drug interaction.
type InteractionSeverity string

const (
	SeveritySafe    InteractionSeverity = "safe"
	SeverityCaution InteractionSeverity = "caution"
	SeverityWarning InteractionSeverity = "warning"
)

// Rank returns the ordinal position of the severity, warning being highest.
func (s InteractionSeverity) Rank() int {
	switch s {
	case SeveritySafe:
		return 0
	case SeverityCaution:
		return 1
	case SeverityWarning:
		return 2
	}
	return -1
}

// Valid reports whether the severity is one of the known values.
func (s InteractionSeverity) Valid() bool {
	return s.Rank() >= 0
}

// Interaction is a drug-drug, food, or alcohol interaction finding.
type Interaction struct {
	Severity    InteractionSeverity `json:"severity"`
	Description string              `json:"description"`
}

// MedicationAnalysis is the result of one AI analysis call.
type MedicationAnalysis struct {
	IsMedication       bool                   `json:"isMedication"`
	Medications        []IdentifiedMedication `json:"medications"`
	Interactions       []Interaction          `json:"interactions"`
	GeneralAdvice      *string                `json:"generalAdvice"`
	ReminderSuggestion string                 `json:"reminderSuggestion"`
	LanguageDetected   string                 `json:"languageDetected"`
}

// EffectiveMedications returns the medication list, ignoring any content
// when IsMedication is false.
func (a *MedicationAnalysis) EffectiveMedications() []IdentifiedMedication {
	if !a.IsMedication {
		return nil
	}
	return a.Medications
}

// MessageRole identifies the sender of a chat message.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// ChatMessage is one turn of conversation in a chat transcript.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

// DeviceType records which kind of client performed a scan.
type DeviceType string

const (
	DeviceMobile DeviceType = "mobile"
	DeviceWeb    DeviceType = "web"
)

// SavedMedication is a MedicationAnalysis promoted to a durable record.
// A record starts provisional (in memory only) the moment analysis succeeds,
// so the chat can reference it immediately, and becomes durable only on
// explicit save.
type SavedMedication struct {
	MedicationAnalysis
	ID          string        `json:"id"`
	DateScanned time.Time     `json:"dateScanned"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	DeviceType  DeviceType    `json:"deviceType"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	LastSynced  *time.Time    `json:"lastSynced,omitempty"`
}

// RecordPatch carries partial updates for an existing SavedMedication.
// Nil fields are left untouched by Store.Update; later patches win.
type RecordPatch struct {
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
	ImageURL    *string       `json:"imageUrl,omitempty"`
	LastSynced  *time.Time    `json:"lastSynced,omitempty"`
}

// AnalysisStatus is the lifecycle state of the current scan.
type AnalysisStatus string

const (
	StatusIdle      AnalysisStatus = "idle"
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusSuccess   AnalysisStatus = "success"
	StatusError     AnalysisStatus = "error"
)

// AnalysisState is the transient per-session analysis state. It is replaced
// wholesale on every transition, never partially mutated.
type AnalysisState struct {
	Status   AnalysisStatus      `json:"status"`
	Data     *MedicationAnalysis `json:"data"`
	Error    string              `json:"error,omitempty"`
	ImageURL string              `json:"imageUrl,omitempty"`
}

// SyncStatus reflects the outcome of the store's last remote-sync attempt.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncSyncing SyncStatus = "syncing"
	SyncOffline SyncStatus = "offline"
	SyncError   SyncStatus = "error"
)

// Theme is the persisted two-value UI theme toggle.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// View is the navigational state, orthogonal to analysis status.
type View string

const (
	ViewHome       View = "home"
	ViewScanResult View = "scan_result"
	ViewChat       View = "chat"
	ViewList       View = "list"
	ViewAbout      View = "about"
)
