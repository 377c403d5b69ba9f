package messaging

import (
	"strconv"
	"time"

	"cluster-service/internal/codec"
	"cluster-service/internal/types"
)

const (
	// LogLines is the number of log lines the dashboard keeps.
	LogLines = 10

	// MaxArc is the gauge sweep in degrees at full speed.
	MaxArc = 240
)

// Dashboard screens and banners as written to the cluster hash.
const (
	ScreenPrimary = "primary"
	ScreenLog     = "log"

	BannerDegraded = "degraded"
	BannerFault    = "fault"
)

// SpeedToArc maps the raw 12-bit speed onto the gauge arc.
func SpeedToArc(speed uint16) int {
	if speed > codec.MaxSpeed {
		speed = codec.MaxSpeed
	}
	return int(speed) * MaxArc / int(codec.MaxSpeed)
}

// LogRing keeps the most recent LogLines lines, oldest first.
type LogRing struct {
	lines [LogLines]string
	start int
	n     int
}

func (r *LogRing) Add(line string) {
	if r.n < LogLines {
		r.lines[(r.start+r.n)%LogLines] = line
		r.n++
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % LogLines
}

func (r *LogRing) Lines() []string {
	out := make([]string, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.lines[(r.start+i)%LogLines]
	}
	return out
}

func (r *LogRing) Len() int { return r.n }

// update is the set of cluster hash changes produced by one input.
type update struct {
	set      map[string]interface{}
	del      []string
	logLines []string
	hasLog   bool
}

func (u *update) empty() bool {
	return len(u.set) == 0 && len(u.del) == 0 && !u.hasLog
}

// fields lists every touched field name, for change notifications.
func (u *update) fields() []string {
	names := make([]string, 0, len(u.set)+len(u.del)+1)
	for k := range u.set {
		names = append(names, k)
	}
	names = append(names, u.del...)
	if u.hasLog {
		names = append(names, "log")
	}
	return names
}

// view tracks what the dashboard shows so only changes are written.
type view struct {
	screen  string
	banner  string
	log     LogRing
	sample  types.Sample
	hasData bool
	state   types.SystemState
	outputs bool
}

func (v *view) applyCommand(cmd types.UICommand) update {
	u := update{set: map[string]interface{}{}}

	switch cmd.Kind {
	case types.UIShowPrimary:
		v.setScreen(&u, ScreenPrimary)
	case types.UIShowLog:
		v.setScreen(&u, ScreenLog)
	case types.UIShowDegraded:
		v.setBanner(&u, BannerDegraded)
	case types.UIShowFault:
		v.setBanner(&u, BannerFault)
	case types.UIAddLog:
		v.log.Add(cmd.Text)
		u.logLines, u.hasLog = v.log.Lines(), true
	}
	return u
}

func (v *view) setScreen(u *update, screen string) {
	if v.screen != screen {
		v.screen = screen
		u.set["screen"] = screen
	}
}

func (v *view) setBanner(u *update, banner string) {
	if v.banner != banner {
		v.banner = banner
		u.set["banner"] = banner
	}
}

// applySample writes changed sample fields. Fresh data hides the
// degraded banner; the fault banner stays.
func (v *view) applySample(s types.Sample) update {
	u := update{set: map[string]interface{}{}}

	if !v.hasData || s.Speed != v.sample.Speed {
		u.set["speed"] = s.Speed
		u.set["speed:arc"] = SpeedToArc(s.Speed)
	}
	if !v.hasData || s.LeftTurn != v.sample.LeftTurn {
		u.set["blinker:left"] = onOff(s.LeftTurn)
	}
	if !v.hasData || s.RightTurn != v.sample.RightTurn {
		u.set["blinker:right"] = onOff(s.RightTurn)
	}
	v.sample, v.hasData = s, true

	if v.banner == BannerDegraded {
		v.banner = ""
		u.del = append(u.del, "banner")
	}
	return u
}

func (v *view) applyStatus(st types.StatusSnapshot, ts time.Time) update {
	u := update{set: map[string]interface{}{}}

	if st.State != v.state {
		v.state = st.State
		u.set["state"] = string(st.State)
		u.set["state:timestamp"] = ts.Format(time.RFC3339)
	}
	if st.OutputsEnabled != v.outputs || len(u.set) > 0 {
		v.outputs = st.OutputsEnabled
		u.set["outputs"] = strconv.FormatBool(st.OutputsEnabled)
	}
	return u
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
