package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func hotelService() Service {
	return Service{ID: "7", Name: "Hotel X", Kind: KindHotel, BasePrice: 1000}
}

func TestBuild_HotelTwoNights(t *testing.T) {
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-03")

	it := Build(p, hotelService(), DefaultCatalog())

	assert.Equal(t, []LineItem{
		{Description: "Night 1 (1 room)", Amount: 1000},
		{Description: "Night 2 (1 room)", Amount: 1000},
	}, it.Items)
	assert.Equal(t, 2000.0, it.Total)
}

func TestBuild_HotelNightsTimesRoomsPlusAddons(t *testing.T) {
	cat := DefaultCatalog()
	checkIn := mustDate(t, "2024-01-10")
	for nights := 1; nights <= 7; nights++ {
		for rooms := 1; rooms <= 5; rooms++ {
			p := DefaultParams(KindHotel)
			p.CheckIn = checkIn
			p.CheckOut = checkIn.AddDate(0, 0, nights)
			p.Party.Rooms = rooms
			// selected out of catalog order on purpose
			p.Addons = []AddonService{cat.Addons[2], cat.Addons[0]}

			it := Build(p, hotelService(), cat)

			require.Len(t, it.Items, nights+2)
			var sum float64
			for i := 0; i < nights; i++ {
				assert.Equal(t, 1000*float64(rooms), it.Items[i].Amount)
				sum += it.Items[i].Amount
			}
			assert.Equal(t, "Tour Romántico", it.Items[nights].Description)
			assert.Equal(t, "Acceso a Spa", it.Items[nights+1].Description)
			sum += 1500 + 800
			assert.Equal(t, sum, it.Total)
		}
	}
}

func TestBuild_HotelPluralRooms(t *testing.T) {
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-02")
	p.Party.Rooms = 3

	it := Build(p, hotelService(), DefaultCatalog())
	require.Len(t, it.Items, 1)
	assert.Equal(t, "Night 1 (3 rooms)", it.Items[0].Description)
	assert.Equal(t, 3000.0, it.Total)
}

func TestBuild_HotelMissingDatesIsEmpty(t *testing.T) {
	cat := DefaultCatalog()
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.Addons = []AddonService{cat.Addons[0]}

	it := Build(p, hotelService(), cat)
	assert.Empty(t, it.Items)
	assert.Zero(t, it.Total)
}

func TestBuild_HotelInvertedDatesKeepsAddonsOnly(t *testing.T) {
	cat := DefaultCatalog()
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-03")
	p.CheckOut = mustDate(t, "2024-06-01")
	p.Addons = []AddonService{cat.Addons[1]}

	it := Build(p, hotelService(), cat)
	assert.Equal(t, []LineItem{{Description: "Paquete Luna de Miel", Amount: 3500}}, it.Items)
	assert.Equal(t, 3500.0, it.Total)
}

func TestBuild_TourScenario(t *testing.T) {
	p := DefaultParams(KindTour)
	p.Party.Adults = 2
	p.Party.Children = 1

	it := Build(p, Service{Kind: KindTour, BasePrice: 1200}, DefaultCatalog())
	assert.Equal(t, 3120.0, it.Total)
	require.Len(t, it.Items, 2)
	assert.Equal(t, 720.0, it.Items[1].Amount)
}

func TestBuild_TourFormula(t *testing.T) {
	for _, base := range []float64{1, 99.99, 1200, 1337.5} {
		for adults := 1; adults <= 6; adults++ {
			for children := 0; children <= 6; children++ {
				p := DefaultParams(KindTour)
				p.Party.Adults = adults
				p.Party.Children = children

				it := Build(p, Service{Kind: KindTour, BasePrice: base}, Catalog{})
				want := float64(adults)*base + float64(children)*(base*0.6)
				assert.InDelta(t, want, it.Total, 1e-9)
			}
		}
	}
}

func TestBuild_CenoteByTicketKey(t *testing.T) {
	p := DefaultParams(KindCenote)
	p.Party.Persons = 3
	p.Party.TicketType = TicketSnorkel

	it := Build(p, Service{Kind: KindCenote}, DefaultCatalog())
	assert.Equal(t, 1950.0, it.Total)

	p.Party.TicketType = "650"
	assert.Zero(t, Build(p, Service{Kind: KindCenote}, DefaultCatalog()).Total)
}

func TestBuild_Horseback(t *testing.T) {
	p := DefaultParams(KindHorseback)
	p.Party.Riders = 4

	it := Build(p, Service{Kind: KindHorseback, BasePrice: 850}, DefaultCatalog())
	assert.Equal(t, 3400.0, it.Total)
	assert.Equal(t, "Riders (4 × 850.00)", it.Items[0].Description)
}

func TestBuild_UnknownKind(t *testing.T) {
	it := Build(Params{Kind: "boat"}, Service{BasePrice: 10}, DefaultCatalog())
	assert.NotNil(t, it.Items)
	assert.Empty(t, it.Items)
}

func TestNights_RoundsPartialDaysUp(t *testing.T) {
	in := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, Nights(in, in.Add(36*time.Hour)))
	assert.Equal(t, 0, Nights(in, time.Time{}))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$3120.00 MXN", FormatAmount(3120))
	assert.Equal(t, "$0.10 MXN", FormatAmount(0.1))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Caballos")
	require.NoError(t, err)
	assert.Equal(t, KindHorseback, k)

	_, err = ParseKind("kayak")
	assert.Error(t, err)
}
