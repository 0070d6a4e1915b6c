package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/safer-cli/internal/model"
)

const acmeDetail = "Legal Name: Acme LLC\nU.S. DOT#: 12345\nAddress: 1 Main St\nSpringfield\nTelephone: (555) 123-4567\nEmail: a@b.com\n"

func TestExtract_FullRecord(t *testing.T) {
	got := Extract(acmeDetail)

	assert.Equal(t, model.CarrierRecord{
		LegalName:          "Acme LLC",
		RegistrationNumber: "12345",
		Address:            "1 Main St",
		Telephone:          "(555) 123-4567",
		Email:              "a@b.com",
	}, got)
}

func TestExtract_Idempotent(t *testing.T) {
	assert.Equal(t, Extract(acmeDetail), Extract(acmeDetail))
}

func TestExtract_EmailExactToken(t *testing.T) {
	cases := []string{
		"dispatch@acme-freight.com",
		"first.last+ops@mail.carrier.co",
		"OPS_24%7@trucking.US",
	}
	for _, email := range cases {
		t.Run(email, func(t *testing.T) {
			got := Extract("Legal Name: X\nEmail: " + email + "\n")
			assert.Equal(t, email, got.Email)
		})
	}
}

func TestExtract_MissingEmailIsSentinel(t *testing.T) {
	got := Extract("Legal Name: Acme LLC\nU.S. DOT#: 12345\n")
	assert.Equal(t, model.Unavailable, got.Email)
	assert.NotEmpty(t, got.Email)
}

func TestExtract_MalformedEmailIsSentinel(t *testing.T) {
	got := Extract("Email: not-an-address\n")
	assert.Equal(t, model.Unavailable, got.Email)
}

func TestExtract_FieldsIndependent(t *testing.T) {
	// Only the phone survives; nothing else should block it.
	got := Extract("garbage\nTelephone: (312) 555-0100\nmore garbage")

	assert.Equal(t, model.Unavailable, got.LegalName)
	assert.Equal(t, model.Unavailable, got.RegistrationNumber)
	assert.Equal(t, model.Unavailable, got.Address)
	assert.Equal(t, "(312) 555-0100", got.Telephone)
	assert.Equal(t, model.Unavailable, got.Email)
}

func TestExtract_AddressNeedsTelephoneLabel(t *testing.T) {
	got := Extract("Address: 1 Main St\nSpringfield\nFax: (555) 000-0000\n")
	assert.Equal(t, model.Unavailable, got.Address)
}

func TestExtract_AddressWithCRLF(t *testing.T) {
	got := Extract("Address: 77 Dock Rd\r\nGARY, IN 46402\r\nTelephone: (219) 555-0199\r\n")
	assert.Equal(t, "77 Dock Rd", got.Address)
	assert.Equal(t, "(219) 555-0199", got.Telephone)
}

func TestExtract_EmptyLegalNameIsSentinel(t *testing.T) {
	got := Extract("U.S. DOT#: 987\nLegal Name:   \n")
	assert.Equal(t, model.Unavailable, got.LegalName)
	assert.Equal(t, "987", got.RegistrationNumber)
}

func TestExtract_LabelOnOwnLine(t *testing.T) {
	got := Extract("Legal Name:\nAcme LLC\nAddress:\n1 Main St\nSpringfield, IL 62701\nTelephone: (555) 123-4567\n")

	assert.Equal(t, "Acme LLC", got.LegalName)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "(555) 123-4567", got.Telephone)
}

func TestExtract_EmptyText(t *testing.T) {
	assert.Equal(t, model.UnavailableRecord(), Extract(""))
}

func TestUnreachable(t *testing.T) {
	r := Unreachable()
	assert.Equal(t, model.UnavailableRecord(), r)
	assert.False(t, r.HasEmail())
}
