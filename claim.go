package nmea

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	addressClaimPriority uint8 = 6
	// addressModulus bounds the address space probed by the arbitrary capable
	// loop: addresses 0..251 are claimable, 252-253 are reserved, 254 is the
	// null address and 255 the global address.
	addressModulus = 252
	// claimWindow is how long other nodes have to contest an emitted claim
	claimWindow = 250 * time.Millisecond
)

// Claim starts the J1939 dynamic address claim procedure for the given NAME on
// a background goroutine and returns a channel that yields the terminal result
// exactly once. On success the settled address becomes visible through
// Address. Calling Claim while a previous claim is still running yields
// ErrClaimInProgress without disturbing the running claim. Once a claim has
// settled the address is kept for the lifetime of the device, later
// higher-priority claims for it are not acted upon.
func (d *Device) Claim(name DeviceName) <-chan error {
	result := make(chan error, 1)

	d.lock.Lock()
	if d.claiming {
		d.lock.Unlock()
		result <- ErrClaimInProgress
		return result
	}
	d.claiming = true
	d.lock.Unlock()

	d.claimWG.Add(1)
	go func() {
		defer d.claimWG.Done()

		address, err := d.runClaim(name)

		d.lock.Lock()
		if err == nil {
			claimed := address
			d.address = &claimed
		}
		d.claiming = false
		d.lock.Unlock()

		result <- err
	}()
	return result
}

// runClaim emits claims and listens for contention until the address settles
// or the procedure fails. Candidate addresses start at UniqueNumber mod 252
// and advance by one per lost contention; cycling back to the start address
// means the bus is full.
func (d *Device) runClaim(name DeviceName) (uint8, error) {
	packed := name.Uint64()
	address := uint8(name.UniqueNumber % addressModulus)
	startAddress := address

	for {
		if err := d.writeAddressClaim(address, packed); err != nil {
			return 0, err
		}
		contested, err := d.waitForContender(address, name, packed)
		if err != nil {
			return 0, err
		}
		if !contested {
			d.log.Debug().Uint8("address", address).Msg("address claim settled")
			return address, nil
		}

		address = (address + 1) % addressModulus
		if address == startAddress {
			return 0, ErrNoAvailableAddress
		}
	}
}

func (d *Device) writeAddressClaim(source uint8, packedName uint64) error {
	frame := RawFrame{
		Header: CanBusHeader{
			PGN:         uint32(PGNISOAddressClaim),
			Priority:    addressClaimPriority,
			Source:      source,
			Destination: AddressGlobal,
		},
		Length: 8,
	}
	binary.LittleEndian.PutUint64(frame.Data[:], packedName)

	d.log.Debug().Uint8("address", source).Msg("emitting address claim")
	if err := d.conn.WriteFrame(frame); err != nil {
		return fmt.Errorf("failed to send address claim frame: %w", err)
	}
	return nil
}

// waitForContender polls the connection for up to the contention window after
// an emitted claim. Only address claim frames whose source is our candidate
// address matter; of those, a NAME packing to a strictly lower value wins the
// contention. Everything else on the bus is discarded while waiting.
func (d *Device) waitForContender(address uint8, name DeviceName, packedName uint64) (bool, error) {
	deadline := d.clock.Now().Add(claimWindow)
	for {
		remaining := deadline.Sub(d.clock.Now())
		if remaining <= 0 {
			return false, nil
		}
		if setter, ok := d.conn.(ReadTimeoutSetter); ok {
			if err := setter.SetReadTimeout(remaining); err != nil {
				return false, err
			}
		}

		frame, err := d.conn.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrReadTimeout) { // window elapsed without a winning contender
				return false, nil
			}
			// garbage on the wire does not abort the claim, the window bounds the loop
			continue
		}

		if PGN(frame.Header.PGN) != PGNISOAddressClaim || frame.Header.Source != address {
			continue
		}

		contenderName := binary.LittleEndian.Uint64(frame.Data[:])
		if contenderName >= packedName { // we win, keep waiting out the window
			continue
		}

		if !name.ArbitraryAddressCapable {
			// concede the address permanently: announce ourselves on the null
			// address and fail the claim
			_ = d.writeAddressClaim(AddressNull, packedName)
			return false, ErrAddressConflict
		}
		d.log.Debug().
			Uint8("address", address).
			Uint64("contender", contenderName).
			Msg("lost address contention, trying next address")
		return true, nil
	}
}
