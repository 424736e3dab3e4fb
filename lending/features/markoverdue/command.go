// Package markoverdue implements the overdue sweep: every borrowing or renewed loan past
// its due time becomes overdue. The sweep is idempotent for a fixed now.
package markoverdue

const (
	commandType = "MarkOverdue"

	// TriggerSchedule marks sweeps started by the sweeper.
	TriggerSchedule = "schedule"
	// TriggerManual marks sweeps started by an administrator.
	TriggerManual = "manual"
	// TriggerStartup marks the sweep run once when the service starts.
	TriggerStartup = "startup"
)

// Command asks for one sweep. Trigger only feeds the logs.
type Command struct {
	Trigger string
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command.
func BuildCommand(trigger string) Command {
	return Command{Trigger: trigger}
}
