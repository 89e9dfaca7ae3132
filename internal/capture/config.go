package capture

type Config struct {
	// Properties that mirror the audit metadata itself. Diffing them would
	// feed the audit write back into the next domain write.
	IgnoredProperties []string `envconfig:"AUDIT_IGNORED_PROPERTIES" default:"changedBy,dateChanged,creator,dateCreated,voidedBy,dateVoided,retiredBy,dateRetired"`
	LogLevel          string   `envconfig:"AUDIT_LOG_LEVEL" default:"info"`
}
