package app

import (
	"context"
	"sync"

	"github.com/eiannone/keyboard"
	"go.uber.org/zap"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// KeyCommand maps a key press to a controller command.
func KeyCommand(key rune) (Command, bool) {
	switch key {
	case ' ':
		return CommandToggle, true
	case 'f', 'F':
		return CommandViewFrequency, true
	case 't', 'T':
		return CommandViewTime, true
	case '\t', 'v', 'V':
		return CommandCycleView, true
	case 'q', 'Q', keyEscape, keyCtrlC:
		return CommandQuit, true
	}
	return 0, false
}

// ListenKeyboard reads raw key presses from the terminal and dispatches the
// mapped commands until ctx is done or a quit key is pressed. It returns an
// error when the terminal cannot be put into raw mode.
func ListenKeyboard(ctx context.Context, c *Controller, log *zap.Logger) error {
	if err := keyboard.Open(); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}

	closeOnce := &sync.Once{}
	closeKeyboard := func() {
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}
	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	go func() {
		defer closeKeyboard()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				log.Debug("keyboard input stopped", zap.Error(err))
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			cmd, ok := KeyCommand(keyRune(char, key))
			if !ok {
				continue
			}
			c.Dispatch(cmd)
			if cmd == CommandQuit {
				return
			}
		}
	}()
	return nil
}

func keyRune(char rune, key keyboard.Key) rune {
	switch key {
	case keyboard.KeySpace:
		return ' '
	case keyboard.KeyTab:
		return '\t'
	case keyboard.KeyEsc:
		return keyEscape
	case keyboard.KeyCtrlC:
		return keyCtrlC
	}
	return char
}
