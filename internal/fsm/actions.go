package fsm

import "github.com/librescoot/librefsm"

// Actions defines the state entry actions of the node state machine.
// core.System implements this interface.
type Actions interface {
	EnterDisplayInit(c *librefsm.Context) error
	EnterWaitingForData(c *librefsm.Context) error
	EnterActive(c *librefsm.Context) error
	EnterDegraded(c *librefsm.Context) error
	EnterFault(c *librefsm.Context) error
}
