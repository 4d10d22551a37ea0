package ubxmodem

import (
	"strconv"
	"strings"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/constants"
)

// queryMNOProfile issues AT+UMNOPROF? and returns the current profile
// id, used both by module_configure's best-effort cache refresh and by
// SetMNOProfile's change detection.
func (c *CellInstance) queryMNOProfile() (int, error) {
	c.client.Lock()
	var err error
	var profile int
	if err = c.client.CommandStart("AT+UMNOPROF?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			if err = c.client.ResponseStart("+UMNOPROF:"); err == nil {
				profile, err = c.client.ReadInt()
				if err == nil {
					err = c.client.ResponseStop()
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return 0, translateATError("queryMNOProfile", err)
	}
	return profile, nil
}

// SetMNOProfile reads AT+UMNOPROF? and, if it differs from want, writes
// AT+UMNOPROF=<want> and flags rebootIsRequired (spec §4.5 "MNO profile
// get/set... on change, reboot to apply").
func (c *CellInstance) SetMNOProfile(want int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.cap.HasFeature(caps.FeatureMNOProfile) {
		return newError("SetMNOProfile", ErrNotSupported, "module has no MNO profile feature")
	}
	current, err := c.queryMNOProfile()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.mnoProfile = current
	c.mu.Unlock()
	if current == want {
		return nil
	}
	if err := c.sendSimpleIntParam("SetMNOProfile", "AT+UMNOPROF", want); err != nil {
		return err
	}
	c.mu.Lock()
	c.mnoProfile = want
	c.rebootRequired = true
	c.mu.Unlock()
	return nil
}

// GetMNOProfile returns the last-cached MNO profile id.
func (c *CellInstance) GetMNOProfile() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mnoProfile
}

// SetRAT enumerates the module's current RATs via AT+URAT? and, if any
// secondary RAT is set or the primary differs from want, writes the sole
// requested RAT and flags rebootIsRequired (spec §4.5 "RAT set/get").
func (c *CellInstance) SetRAT(want caps.RAT) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	supported := false
	for _, r := range c.cap.SupportedRATs {
		if r == want {
			supported = true
			break
		}
	}
	if !supported {
		return newError("SetRAT", ErrInvalidParameter, "RAT not supported by this module variant")
	}

	rats, err := c.queryRAT()
	if err != nil {
		return err
	}
	if len(rats) == 1 && rats[0] == int(want) {
		return nil
	}

	c.client.Lock()
	if err = c.client.CommandStart("AT+URAT"); err == nil {
		if err = c.client.WriteInt(int(want)); err == nil {
			if err = c.client.CommandStop(); err == nil {
				err = c.client.ResponseStop()
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetRAT", err)
	}
	c.mu.Lock()
	c.rebootRequired = true
	c.mu.Unlock()
	return nil
}

func (c *CellInstance) queryRAT() ([]int, error) {
	c.client.Lock()
	var err error
	var rats []int
	if err = c.client.CommandStart("AT+URAT?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			if err = c.client.ResponseStart("+URAT:"); err == nil {
				for i := 0; i < c.cap.MaxNumSimultaneousRATs; i++ {
					v, rErr := c.client.ReadInt()
					if rErr != nil {
						break
					}
					rats = append(rats, v)
				}
				err = c.client.ResponseStop()
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return nil, translateATError("queryRAT", err)
	}
	return rats, nil
}

// SetBandMask issues AT+UBANDMASK=<rat>,<mask> for Cat-M1/NB1 only, and
// only when mask is non-zero and differs from the currently configured
// mask (spec §4.5 "Band mask read/set").
func (c *CellInstance) SetBandMask(rat caps.RAT, mask uint64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if rat != caps.RatCatM1 && rat != caps.RatNB1 {
		return newError("SetBandMask", ErrInvalidParameter, "band mask only applies to Cat-M1/NB1")
	}
	if mask == 0 {
		return nil
	}

	current, err := c.queryBandMask(rat)
	if err == nil && current == mask {
		return nil
	}

	c.client.Lock()
	var werr error
	if werr = c.client.CommandStart("AT+UBANDMASK"); werr == nil {
		if werr = c.client.WriteInt(int(rat)); werr == nil {
			if werr = c.client.WriteString(strconv.FormatUint(mask, 10), false); werr == nil {
				if werr = c.client.CommandStop(); werr == nil {
					werr = c.client.ResponseStop()
				}
			}
		}
	}
	werr = c.client.Unlock(werr)
	if werr != nil {
		return translateATError("SetBandMask", werr)
	}
	return nil
}

func (c *CellInstance) queryBandMask(rat caps.RAT) (uint64, error) {
	c.client.Lock()
	var err error
	var mask uint64
	if err = c.client.CommandStart("AT+UBANDMASK?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			if err = c.client.ResponseStart("+UBANDMASK:"); err == nil {
				for {
					ratTok, rErr := c.client.ReadString(true)
					if rErr != nil || ratTok == "" {
						break
					}
					maskTok, _ := c.client.ReadString(true)
					ratVal, convErr := strconv.Atoi(strings.TrimSpace(ratTok))
					if convErr != nil || caps.RAT(ratVal) != rat {
						continue
					}
					mask, _ = strconv.ParseUint(strings.TrimSpace(maskTok), 10, 64)
				}
				err = c.client.ResponseStop()
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return 0, translateATError("queryBandMask", err)
	}
	return mask, nil
}

// SetContext installs a PDP context (spec §4.5 "PDP context install" and
// §8 scenario 6 "APN change via CGDCONT"): scan existing contexts up to
// MAX_NUM_CONTEXTS for id, and rewrite only if the APN differs. A
// read-side parse failure (including a timeout) is tolerated and treated
// as "no matching context found".
func (c *CellInstance) SetContext(id int, apn string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	existingAPN, found := c.queryContextAPN(id)
	if found && existingAPN == apn {
		return nil
	}

	c.client.Lock()
	var err error
	if err = c.client.CommandStart("AT+CGDCONT"); err == nil {
		if err = c.client.WriteInt(id); err == nil {
			if err = c.client.WriteString("IP", true); err == nil {
				if err = c.client.WriteString(apn, true); err == nil {
					if err = c.client.CommandStop(); err == nil {
						err = c.client.ResponseStop()
					}
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetContext", err)
	}
	return nil
}

func (c *CellInstance) queryContextAPN(id int) (string, bool) {
	c.client.Lock()
	var err error
	found := false
	apn := ""
	if err = c.client.CommandStart("AT+CGDCONT?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			// terminated is set once ResponseStart's own lookahead has
			// already consumed the final OK/ERROR line (there being no
			// further "+CGDCONT:" line to match): calling ResponseStop
			// again in that case would wait for a second terminator
			// that is never sent.
			terminated := false
		scan:
			for i := 0; i < constants.MaxNumContexts; i++ {
				rErr := c.client.ResponseStart("+CGDCONT:")
				if rErr != nil {
					if st, ok := rErr.(*atclient.Status); ok && st.Kind == atclient.KindOK {
						terminated = true
					} else {
						err = rErr
					}
					break scan
				}
				cid, rErr := c.client.ReadInt()
				if rErr != nil {
					continue
				}
				_, _ = c.client.ReadString(true) // PDP type
				a, rErr := c.client.ReadString(true)
				if rErr != nil {
					continue
				}
				if cid == id {
					apn, found = a, true
				}
			}
			if !terminated && err == nil {
				err = c.client.ResponseStop()
			}
		}
	}
	_ = c.client.Unlock(err)
	return apn, found
}

// SetGreeting issues AT+CSGT="<greeting>" so that a spontaneous reboot
// is visible as a URC line (spec §4.5 "Greeting").
func (c *CellInstance) SetGreeting(greeting string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.client.Lock()
	var err error
	if err = c.client.CommandStart("AT+CSGT"); err == nil {
		if err = c.client.WriteString(greeting, true); err == nil {
			if err = c.client.CommandStop(); err == nil {
				err = c.client.ResponseStop()
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetGreeting", err)
	}
	return nil
}

// DisableLWM2M reads AT+ULWM2M? and, if not already 1, writes
// AT+ULWM2M=1 and flags rebootIsRequired on the 0->1 transition (spec
// §4.5 "LWM2M disable").
func (c *CellInstance) DisableLWM2M() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.client.Lock()
	var err error
	var current int
	if err = c.client.CommandStart("AT+ULWM2M?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			if err = c.client.ResponseStart("+ULWM2M:"); err == nil {
				current, err = c.client.ReadInt()
				if err == nil {
					err = c.client.ResponseStop()
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("DisableLWM2M", err)
	}
	if current == 1 {
		return nil
	}
	if err := c.sendSimpleIntParam("DisableLWM2M", "AT+ULWM2M", 1); err != nil {
		return err
	}
	c.mu.Lock()
	c.rebootRequired = true
	c.mu.Unlock()
	return nil
}

// ubxCfgNavSpgAckAiding is the UBX-CFG-VALSET key id for
// CFG_NAVSPG_ACKAIDING (a one-byte RAM value), per spec §4.5 "Ack-aiding
// config... on M10 via UBX-CFG-VALSET".
const ubxCfgNavSpgAckAiding = 0x10110025

// ConfigureAckAiding enables acknowledged aiding, either via the legacy
// AT+CFG-NAVX5 bit-field (pre-M10) or a binary UBX-CFG-VALSET frame
// (M10), selected by FeatureAckAidingViaCfgVal (spec §4.5, §12).
func (c *CellInstance) ConfigureAckAiding(enable bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.cap.HasFeature(caps.FeatureAckAidingViaCfgVal) {
		return c.configureAckAidingNavX5(enable)
	}
	return c.configureAckAidingValset(enable)
}

// configureAckAidingNavX5 sets bit 13 (ackAid) of the NAVX5 mask1
// bit-field via AT+CFG-NAVX5, the pre-M10 mechanism.
func (c *CellInstance) configureAckAidingNavX5(enable bool) error {
	const ackAidBit = 1 << 13
	mask := 0
	if enable {
		mask = ackAidBit
	}
	c.client.Lock()
	var err error
	if err = c.client.CommandStart("AT+CFG-NAVX5"); err == nil {
		if err = c.client.WriteInt(mask); err == nil {
			if err = c.client.WriteInt(mask); err == nil {
				if err = c.client.CommandStop(); err == nil {
					err = c.client.ResponseStop()
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("ConfigureAckAiding", err)
	}
	return nil
}

// configureAckAidingValset writes CFG_NAVSPG_ACKAIDING=<enable> to RAM by
// sending a binary UBX-CFG-VALSET frame directly over the same UART
// (spec §4.5/§12): M10 receivers multiplex the UBX binary protocol onto
// the AT serial link rather than exposing it through an AT command, so
// this bypasses AT framing entirely and does not wait for a UBX-ACK.
func (c *CellInstance) configureAckAidingValset(enable bool) error {
	val := byte(0)
	if enable {
		val = 1
	}
	frame := buildUBXCfgValset(ubxCfgNavSpgAckAiding, val)

	c.client.Lock()
	err := c.client.WriteRawFrame(frame)
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("ConfigureAckAiding", err)
	}
	return nil
}

// buildUBXCfgValset assembles a minimal UBX-CFG-VALSET (class 0x06,
// id 0x8a) message applying a single one-byte key/value to RAM layer
// (layer bit 0), including the UBX sync chars and 8-bit Fletcher
// checksum.
func buildUBXCfgValset(keyID uint32, value byte) []byte {
	payload := []byte{
		0x00,       // version
		0x01,       // layers: RAM
		0x00, 0x00, // reserved
		byte(keyID), byte(keyID >> 8), byte(keyID >> 16), byte(keyID >> 24),
		value,
	}
	msg := []byte{0xB5, 0x62, 0x06, 0x8A, byte(len(payload)), byte(len(payload) >> 8)}
	msg = append(msg, payload...)
	ckA, ckB := ubxChecksum(msg[2:])
	msg = append(msg, ckA, ckB)
	return msg
}

func ubxChecksum(b []byte) (byte, byte) {
	var a, bb byte
	for _, v := range b {
		a += v
		bb += a
	}
	return a, bb
}
