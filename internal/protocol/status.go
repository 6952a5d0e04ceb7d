package protocol

// LegacyVersionCeiling is the first rpc-version using the sequential status vocabulary.
const LegacyVersionCeiling = 14

// Torrent status codes for rpc-version >= 14.
const (
	StatusStopped      = 0
	StatusCheckWait    = 1
	StatusCheck        = 2
	StatusDownloadWait = 3
	StatusDownload     = 4
	StatusSeedWait     = 5
	StatusSeed         = 6
)

// Torrent status codes for rpc-version < 14.
const (
	LegacyStatusCheckWait = 1
	LegacyStatusCheck     = 2
	LegacyStatusDownload  = 4
	LegacyStatusSeed      = 8
	LegacyStatusStopped   = 16
)

const StatusUnknown = "Unknown"

// StatusVocabulary maps status codes to display strings for one protocol era.
type StatusVocabulary struct {
	name  string
	table map[int]string
}

var (
	LegacyStatuses = StatusVocabulary{
		name: "legacy",
		table: map[int]string{
			LegacyStatusCheckWait: "Waiting to verify local files",
			LegacyStatusCheck:     "Verifying local files",
			LegacyStatusDownload:  "Downloading",
			LegacyStatusSeed:      "Seeding",
			LegacyStatusStopped:   "Stopped",
		},
	}

	CurrentStatuses = StatusVocabulary{
		name: "current",
		table: map[int]string{
			StatusStopped:      "Stopped",
			StatusCheckWait:    "Waiting to verify local files",
			StatusCheck:        "Verifying local files",
			StatusDownloadWait: "Queued for download",
			StatusDownload:     "Downloading",
			StatusSeedWait:     "Queued for seeding",
			StatusSeed:         "Seeding",
		},
	}

	// UnknownStatuses is used until the rpc-version has been negotiated.
	UnknownStatuses = StatusVocabulary{name: "unknown"}
)

// VocabularyFor selects the status vocabulary for an rpc-version.
func VocabularyFor(version int) StatusVocabulary {
	if IsLegacy(version) {
		return LegacyStatuses
	}
	return CurrentStatuses
}

// IsLegacy reports whether version predates the sequential status codes.
func IsLegacy(version int) bool {
	return version < LegacyVersionCeiling
}

func (v StatusVocabulary) Name() string {
	if v.name == "" {
		return UnknownStatuses.name
	}
	return v.name
}

// Text returns the display string for code, or StatusUnknown.
func (v StatusVocabulary) Text(code int) string {
	if text, ok := v.table[code]; ok {
		return text
	}
	return StatusUnknown
}

// StatusString decodes code under version.
func StatusString(code, version int) string {
	return VocabularyFor(version).Text(code)
}
