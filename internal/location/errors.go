// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package location

import (
	"errors"
	"fmt"
)

var (
	ErrGeolocationUnsupported = errors.New("precise geolocation is not supported on this device")
	ErrGeolocationDenied      = errors.New("precise geolocation permission denied")
	ErrGeolocationTimeout     = errors.New("precise geolocation timed out")
	ErrPositionUnavailable    = errors.New("precise position unavailable")
	ErrGeocodingExhausted     = errors.New("reverse geocoding failed")
	ErrIPLookupExhausted      = errors.New("IP geolocation failed")
	ErrBothSourcesFailed      = errors.New("unable to determine location")
)

// ResolveError is returned when neither precise nor IP based geolocation succeeded.
type ResolveError struct {
	Precise error
	IP      error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s; %s", ErrBothSourcesFailed, e.Precise, e.IP)
}

func (e *ResolveError) Is(target error) bool {
	return target == ErrBothSourcesFailed
}

func (e *ResolveError) Unwrap() []error {
	return []error{e.Precise, e.IP}
}
