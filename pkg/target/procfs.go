//go:build linux

package target

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// tracerPid reads the TracerPid field from /proc/<pid>/status: the pid
// of the process tracing pid, 0 when nobody does.
func tracerPid(pid int) (int, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		v := strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:"))
		return strconv.Atoi(v)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("no TracerPid in /proc/%d/status", pid)
}
