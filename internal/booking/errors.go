package booking

import "errors"

var (
	// ErrUnresolvedDate means the message confirmed a booking but carried no
	// date or time the resolver could pin down.
	ErrUnresolvedDate = errors.New("booking: could not resolve date and time")

	// ErrBookingCreation means the calendar accepted the request but did not
	// return a usable event, or rejected it outright.
	ErrBookingCreation = errors.New("booking: event creation failed")
)
