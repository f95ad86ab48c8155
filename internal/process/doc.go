// Package process supervises the chromedriver subprocess.
//
// A Process is started without waiting for readiness: the driver's HTTP
// endpoint comes up some time later and callers are expected to poll it.
// Stop is safe to call at any time and any number of times:
//   - a running process receives an interrupt and is killed when it does
//     not exit within the graceful timeout
//   - on Unix the driver gets its own process group so the browsers it
//     spawned are signalled with it
//   - a stopped or never-started process is left alone
//
// Output capture is optional. When an OutputHandler or a LogParser is set,
// stdout and stderr are split into lines, passed to the handler and logged
// at the level the parser extracts:
//
//	proc := process.NewProcess("chromedriver", "/opt/bin/chromedriver-linux", nil, "/opt", logger)
//	proc.SetLogParser(logging.GetLogger("driver"), process.ParseDriverLogLevel)
//	if err := proc.Start(); err != nil {
//		return err
//	}
//	defer proc.Stop()
package process
