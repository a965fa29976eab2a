package booking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_Hotel(t *testing.T) {
	cat := DefaultCatalog()
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-03")
	p.SpecialRequests = "  vista al mar "
	p.Addons = []AddonService{cat.Addons[2], cat.Addons[0]}

	b, err := json.Marshal(NewRequest(hotelService(), p, cat))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"service_id": 7,
		"service_kind": "hotel",
		"hotel_id": 7,
		"check_in": "2024-06-01",
		"check_out": "2024-06-03",
		"guests": 2,
		"rooms": 1,
		"special_requests": "vista al mar",
		"addon_services": [
			{"name": "Tour Romántico", "price": 1500},
			{"name": "Acceso a Spa", "price": 800}
		]
	}`, string(b))
}

func TestNewRequest_TourKeepsZeroChildren(t *testing.T) {
	p := DefaultParams(KindTour)
	p.Date = mustDate(t, "2024-07-01")

	b, err := json.Marshal(NewRequest(Service{ID: "tour-xcaret", Kind: KindTour}, p, Catalog{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"service_id": "tour-xcaret",
		"service_kind": "tour",
		"date": "2024-07-01",
		"adults": 1,
		"children": 0
	}`, string(b))
}

func TestServiceID_MarshalJSON(t *testing.T) {
	cases := map[ServiceID]string{
		"7":           `7`,
		"-12":         `-12`,
		"007":         `"007"`,
		"+7":          `"+7"`,
		"tour-xcaret": `"tour-xcaret"`,
		"":            `""`,
	}
	for id, want := range cases {
		b, err := json.Marshal(id)
		require.NoError(t, err, "id %q", id)
		assert.Equal(t, want, string(b), "id %q", id)
	}
}

func TestParams_MarshalJSONDates(t *testing.T) {
	p := DefaultParams(KindHotel)
	p.CheckIn = mustDate(t, "2024-06-01")
	p.CheckOut = mustDate(t, "2024-06-03")

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "hotel",
		"check_in": "2024-06-01",
		"check_out": "2024-06-03",
		"party": {"guests": 2, "rooms": 1}
	}`, string(b))

	b, err = json.Marshal(DefaultParams(KindTour))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind": "tour", "party": {"adults": 1}}`, string(b))
}
