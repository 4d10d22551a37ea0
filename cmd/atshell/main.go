// Command atshell is an interactive AT command passthrough over a real
// u-blox module attached to a serial port: it opens the UART, brings the
// module up through the power state machine, and then reads lines from
// stdin and sends each one as a raw AT command. Only a failed final
// status is printed; the module's response lines are not printed, and
// appear only in the debug log when -v is given.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ubxmodem/ubxmodem"
	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/constants"
	"github.com/ubxmodem/ubxmodem/internal/gpio"
	"github.com/ubxmodem/ubxmodem/internal/interfaces"
	"github.com/ubxmodem/ubxmodem/internal/logging"
	"github.com/ubxmodem/ubxmodem/internal/serialport"
)

var moduleKinds = map[string]caps.Kind{
	"sara-r4":   caps.SaraR4,
	"sara-r5":   caps.SaraR5,
	"sara-r422": caps.SaraR422,
	"lara-r6":   caps.LaraR6,
	"sara-u201": caps.SaraU201,
}

func main() {
	var (
		device    = flag.String("device", "/dev/ttyUSB0", "serial device the module is attached to")
		baud      = flag.Int("baud", 115200, "UART baud rate")
		kindFlag  = flag.String("kind", "sara-r5", "module variant: sara-r4, sara-r5, sara-r422, lara-r6, sara-u201")
		enablePin = flag.Int("enable-power-gpio", -1, "ENABLE_POWER sysfs GPIO line, or -1 if absent")
		pwrOnPin  = flag.Int("pwr-on-gpio", -1, "PWR_ON sysfs GPIO line, or -1 if absent")
		vintPin   = flag.Int("vint-gpio", -1, "VINT sysfs GPIO line, or -1 if absent")
		skipPower = flag.Bool("skip-power-on", false, "skip the power-on sequence and go straight to the shell")
		verbose   = flag.Bool("v", false, "debug logging, including every transmitted/received line")
	)
	flag.Parse()

	kind, ok := moduleKinds[strings.ToLower(*kindFlag)]
	if !ok {
		log.Fatalf("unknown -kind %q", *kindFlag)
	}

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logCfg)
	logging.SetDefault(logger)

	port, err := serialport.Open(serialport.DefaultConfig(*device))
	if err != nil {
		log.Fatalf("open %s: %v", *device, err)
	}

	client := atclient.New(port, constants.DefaultRingBufferSize, logger)
	client.SetDebugPrint(*verbose)

	pins, closePins := openPins(*enablePin, *pwrOnPin, *vintPin)
	defer closePins()

	h, err := ubxmodem.Add(kind, client, pins, false, &ubxmodem.NewOptions{Logger: logger})
	if err != nil {
		log.Fatalf("Add: %v", err)
	}
	defer ubxmodem.Remove(h)

	if !*skipPower {
		logger.Info("powering on", "device", *device, "kind", kind.String())
		if err := ubxmodem.PowerOn(h, false, nil); err != nil {
			log.Fatalf("PowerOn: %v", err)
		}
		logger.Info("power-on complete")
	}

	inst, _ := ubxmodem.Get(h)
	runShell(inst, client)
}

// openPins builds a PinSet from sysfs GPIO line numbers, treating -1 as
// "absent" per spec §6's GPIO surface, and returns a cleanup func that
// closes whichever pins were actually opened.
func openPins(enablePower, pwrOn, vint int) (ubxmodem.PinSet, func()) {
	var pins ubxmodem.PinSet
	var opened []interfaces.Pin

	open := func(line int, dir interfaces.Direction, polarity interfaces.Polarity) interfaces.Pin {
		if line < 0 {
			return nil
		}
		p, err := gpio.Open(line)
		if err != nil {
			log.Fatalf("gpio: open line %d: %v", line, err)
		}
		if err := p.Configure(dir, polarity, false); err != nil {
			log.Fatalf("gpio: configure line %d: %v", line, err)
		}
		opened = append(opened, p)
		return p
	}

	pins.EnablePower = open(enablePower, interfaces.DirectionOutput, interfaces.ActiveHigh)
	pins.PwrOn = open(pwrOn, interfaces.DirectionOutput, interfaces.ActiveLow)
	pins.Vint = open(vint, interfaces.DirectionInput, interfaces.ActiveHigh)

	return pins, func() {
		for _, p := range opened {
			_ = p.Close()
		}
	}
}

// runShell reads lines from stdin and sends each as a raw AT command,
// printing an error when the final status is not OK. Intermediate
// response lines are discarded by ResponseStop and not printed.
func runShell(inst *ubxmodem.CellInstance, client *atclient.Client) {
	fmt.Println("atshell ready; type AT commands, Ctrl-D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		if err := sendRaw(client, cmd); err != nil {
			fmt.Println("error:", err)
		}
	}
	fmt.Println()
	fmt.Printf("metrics: %+v\n", inst.Metrics().Snapshot(time.Now()))
}

func sendRaw(client *atclient.Client, cmd string) error {
	client.Lock()
	var err error
	if err = client.CommandStart(cmd); err == nil {
		if err = client.CommandStop(); err == nil {
			err = client.ResponseStop()
		}
	}
	return client.Unlock(err)
}
