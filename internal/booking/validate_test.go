package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_HotelDateOrdering(t *testing.T) {
	base := mustDate(t, "2024-06-10")
	for offset := -5; offset <= 5; offset++ {
		p := DefaultParams(KindHotel)
		p.CheckIn = base
		p.CheckOut = base.AddDate(0, 0, offset)

		err := Validate(p, Build(p, hotelService(), DefaultCatalog()))
		if offset <= 0 {
			require.Error(t, err, "offset %d", offset)
			assert.True(t, IsKind(err, ValidationFailed))
		} else {
			assert.NoError(t, err, "offset %d", offset)
		}
	}
}

func TestValidate_HotelMissingDates(t *testing.T) {
	p := DefaultParams(KindHotel)
	err := Validate(p, Build(p, hotelService(), DefaultCatalog()))
	require.Error(t, err)
	assert.Equal(t, "check-in and check-out dates are required", err.Error())
}

func TestValidate_AddonsNeverInvalidate(t *testing.T) {
	cat := DefaultCatalog()
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-02")
	p.Addons = append(p.Addons, cat.Addons...)

	assert.NoError(t, Validate(p, Build(p, hotelService(), cat)))
}

func TestValidate_HotelBounds(t *testing.T) {
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-02")
	p.Party.Rooms = 6

	err := Validate(p, Build(p, hotelService(), DefaultCatalog()))
	require.Error(t, err)
	assert.Equal(t, "rooms must be between 1 and 5", err.Error())

	p.Party.Rooms = 1
	p.Party.Guests = 0
	err = Validate(p, Build(p, hotelService(), DefaultCatalog()))
	require.Error(t, err)
	assert.Equal(t, "guests must be between 1 and 10", err.Error())
}

func TestValidate_Tour(t *testing.T) {
	svc := Service{Kind: KindTour, BasePrice: 1200}
	p := DefaultParams(KindTour)
	p.Party.Adults = 0
	p.Date = mustDate(t, "2024-07-01")

	err := Validate(p, Build(p, svc, Catalog{}))
	require.Error(t, err)
	assert.Equal(t, "at least one adult is required", err.Error())

	p.Party.Adults = 1
	assert.NoError(t, Validate(p, Build(p, svc, Catalog{})))

	p.Date = mustDate(t, "")
	assert.Error(t, Validate(p, Build(p, svc, Catalog{})))
}

func TestValidate_ZeroTotal(t *testing.T) {
	p := DefaultParams(KindHorseback)
	err := Validate(p, Build(p, Service{Kind: KindHorseback, BasePrice: 0}, Catalog{}))
	require.Error(t, err)
	assert.True(t, IsKind(err, ValidationFailed))
}
