package machine

import (
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/filecoin-project/venus-fvm/pkg/vm/trace"
)

// VMDebugMsg for vm debug
type VMDebugMsg struct {
	buf *strings.Builder
}

func NewVMDebugMsg() *VMDebugMsg {
	return &VMDebugMsg{buf: &strings.Builder{}}
}

func (debug *VMDebugMsg) Printfln(msg string, args ...interface{}) {
	debug.buf.WriteString(fmt.Sprintf(msg, args...))
	debug.buf.WriteString("\n")
}

func (debug *VMDebugMsg) Println(args ...interface{}) {
	debug.buf.WriteString(fmt.Sprint(args...))
	debug.buf.WriteString("\n")
}

// PrintTrace writes one indented line per frame of et.
func (debug *VMDebugMsg) PrintTrace(et *trace.ExecutionTrace) {
	if et == nil {
		return
	}
	et.Walk(func(depth int, frame *trace.ExecutionTrace) {
		indent := strings.Repeat("  ", depth)
		debug.Printfln("%s%s -> %s method=%d value=%s gasLimit=%d", indent, frame.Msg.From, frame.Msg.To, frame.Msg.Method, frame.Msg.Value, frame.Msg.GasLimit)
		debug.Printfln("%s  exit=%d gasUsed=%d return=%x", indent, frame.MsgRct.ExitCode, frame.MsgRct.GasUsed, frame.MsgRct.Return)
		if frame.Error != "" {
			debug.Printfln("%s  error: %s", indent, frame.Error)
		}
	})
}

func (debug *VMDebugMsg) String() string {
	return debug.buf.String()
}

// WriteToTerminal write debug message to terminal
func (debug *VMDebugMsg) WriteToTerminal() {
	fmt.Println(debug.buf.String())
}

// WriteToFile write debug message to file
func (debug *VMDebugMsg) WriteToFile(fileName string) error {
	return ioutil.WriteFile(fileName, []byte(debug.buf.String()), 0644)
}
