// Package sh is the interactive shell shared by host tools. Command
// providers register ishell commands in their init via AddCmds.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	env "github.com/robotalks/mcu.go/pkg/env/connector"
	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/host"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Sess   *Session
}

// Session is a running loop over one controller connection.
type Session struct {
	Ctx    context.Context
	Cancel func()
	Conn   *env.Conn
	Loop   *fx.Loop

	// FeederCancel stops the keepalive feeder of this session, nil
	// when none is running.
	FeederCancel func()
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// AckTimeout bounds waiting for a reception ack.
const AckTimeout = time.Second

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands

	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// ClientFrom gets the connected client from ishell context, nil when
// unconnected.
func ClientFrom(c *ishell.Context) *host.Client {
	if sess := ShellFrom(c).Sess; sess != nil {
		return sess.Conn.Client
	}
	return nil
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Sess == nil {
			c.Err(host.ErrNotReady)
			return
		}
		fn(c)
	}
}

// WaitAck waits for the outcome of a tracked send, printing only
// failures.
func WaitAck(c *ishell.Context, p *host.Pending) error {
	ctx, cancel := context.WithTimeout(context.Background(), AckTimeout)
	defer cancel()
	err := p.Wait(ctx)
	if err == context.DeadlineExceeded {
		err = fmt.Errorf("ack timeout")
	}
	if err != nil {
		c.Err(err)
	}
	return err
}

// Await waits for the outcome of a tracked send and prints it.
func Await(c *ishell.Context, p *host.Pending) error {
	if err := WaitAck(c, p); err != nil {
		return err
	}
	s := ShellFrom(c)
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{"ok": true, "return_code": p.ReturnCode()})
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Println("OK")
	return nil
}

// PrintReport prints one controller-initiated report.
func PrintReport(c *ishell.Context, msg wire.Message) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(reportObject(msg))
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(FormatReport(msg))
}

// FormatReport renders one controller-initiated report for display.
func FormatReport(msg wire.Message) string {
	switch m := msg.(type) {
	case *wire.ModuleData:
		if v, err := m.Value(); err == nil {
			return fmt.Sprintf("data %d.%d cmd=%d event=%d value=%v", m.ModuleType, m.ModuleID, m.Command, m.Event, v)
		}
		return fmt.Sprintf("data %d.%d cmd=%d event=%d object=%x", m.ModuleType, m.ModuleID, m.Command, m.Event, m.Object)
	case *wire.KernelData:
		if v, err := m.Value(); err == nil {
			return fmt.Sprintf("kernel data cmd=%d event=%d value=%v", m.Command, m.Event, v)
		}
		return fmt.Sprintf("kernel data cmd=%d event=%d object=%x", m.Command, m.Event, m.Object)
	case *wire.ModuleState:
		return fmt.Sprintf("state %d.%d cmd=%d event=%d", m.ModuleType, m.ModuleID, m.Command, m.Event)
	case *wire.KernelState:
		return fmt.Sprintf("kernel state cmd=%d event=%d", m.Command, m.Event)
	case *wire.ControllerIdentification:
		return fmt.Sprintf("controller id=%d", m.ID)
	case *wire.ModuleIdentification:
		return fmt.Sprintf("module %d.%d", byte(m.TypeID>>8), byte(m.TypeID))
	}
	return fmt.Sprintf("%#v", msg)
}

func reportObject(msg wire.Message) interface{} {
	obj := map[string]interface{}{"kind": reportKind(msg), "report": msg}
	switch m := msg.(type) {
	case *wire.ModuleData:
		if v, err := m.Value(); err == nil {
			obj["value"] = v
		}
	case *wire.KernelData:
		if v, err := m.Value(); err == nil {
			obj["value"] = v
		}
	}
	return obj
}

func reportKind(msg wire.Message) string {
	switch msg.(type) {
	case *wire.ModuleData:
		return "module-data"
	case *wire.KernelData:
		return "kernel-data"
	case *wire.ModuleState:
		return "module-state"
	case *wire.KernelState:
		return "kernel-state"
	case *wire.ControllerIdentification:
		return "controller-id"
	case *wire.ModuleIdentification:
		return "module-id"
	case *wire.ReceptionCode:
		return "ack"
	}
	return "unknown"
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect dials the configured device URL and starts the session
// loop.
func (s *Shell) Connect() error {
	conn, err := s.Config.Connect()
	if err != nil {
		return err
	}
	sess := &Session{Conn: conn, Loop: fx.NewLoop().Add(conn)}
	sess.Ctx, sess.Cancel = context.WithCancel(context.Background())
	if s.Sess != nil {
		s.Disconnect()
	}
	s.Sess = sess
	go sess.Loop.Run(sess.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Config.DeviceURL))
	return nil
}

// Disconnect disconnects current controller.
func (s *Shell) Disconnect() {
	if sess := s.Sess; sess != nil {
		sess.Cancel()
		sess.Conn.Close()
		s.Sess = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if err := s.Connect(); err != nil {
			if !s.Interactive {
				log.Fatalf("connect %q failed: %v", s.Config.DeviceURL, err)
			}
			s.Shell.Printf("connect %q failed: %v\n", s.Config.DeviceURL, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a controller.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL [ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) >= 1 {
				s.Config.DeviceURL = c.Args[0]
			}
			if len(c.Args) >= 2 {
				id, err := strconv.ParseUint(c.Args[1], 0, 8)
				if err != nil {
					c.Err(fmt.Errorf("invalid controller id: %v", err))
					return
				}
				s.Config.ID = uint(id)
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current controller.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
