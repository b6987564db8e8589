package logger

// LevelHandle adjusts the process-wide log level at runtime. It is the value
// handed to components that expose verbosity control (the admin API, the
// lifecycle state) so they never touch package globals directly.
type LevelHandle struct{}

// Levels returns the handle controlling the package logger's level.
func Levels() LevelHandle {
	return LevelHandle{}
}

// Level returns the current level name.
func (LevelHandle) Level() string {
	return GetLevel().String()
}

// SetLevel changes the level. Unknown names are rejected with ErrInvalidLevel
// and leave the current level unchanged.
func (LevelHandle) SetLevel(level string) error {
	prev := GetLevel()
	if err := SetLevel(level); err != nil {
		return err
	}
	if now := GetLevel(); now != prev {
		Info("Log level changed", KeyFrom, prev.String(), KeyTo, now.String())
	}
	return nil
}
