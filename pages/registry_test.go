package pages

import (
	"reflect"
	"testing"
)

func TestAllReturnsRegisteredSitesSorted(t *testing.T) {
	var domains []string
	for _, site := range All() {
		domains = append(domains, site.Domain())
	}

	expected := []string{
		"green-acres.es",
		"green-acres.gr",
		"habita.com",
		"immowelt.at",
		"immowelt.de",
		"realo.be",
		"realo.es",
		"tospitimou.gr",
	}
	if !reflect.DeepEqual(domains, expected) {
		t.Fatalf("registered domains = %v, want %v", domains, expected)
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("immowelt.at"); !ok {
		t.Fatalf("expected immowelt.at to be registered")
	}
	if _, ok := Lookup("www.immowelt.at"); ok {
		t.Fatalf("lookup is exact; www variant should not match")
	}
	if _, ok := Lookup("unknown.example"); ok {
		t.Fatalf("unexpected site for unknown domain")
	}
}

func TestForHost(t *testing.T) {
	tests := []struct {
		host     string
		expected string
		found    bool
	}{
		{host: "immowelt.at", expected: "immowelt.at", found: true},
		{host: "www.immowelt.at", expected: "immowelt.at", found: true},
		{host: "WWW.IMMOWELT.AT", expected: "immowelt.at", found: true},
		{host: "en.tospitimou.gr", expected: "tospitimou.gr", found: true},
		{host: "www.habita.com", expected: "habita.com", found: true},
		{host: "immowelt.fr", found: false},
		{host: "notimmowelt.at", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			site, ok := ForHost(tt.host)
			if ok != tt.found {
				t.Fatalf("ForHost(%q) found = %v, want %v", tt.host, ok, tt.found)
			}
			if ok && site.Domain() != tt.expected {
				t.Fatalf("ForHost(%q) = %q, want %q", tt.host, site.Domain(), tt.expected)
			}
		})
	}
}

func TestDomainsIncludesVariants(t *testing.T) {
	site, _ := Lookup("tospitimou.gr")
	domains := Domains([]Site{site})
	expected := []string{"tospitimou.gr", "www.tospitimou.gr", "en.tospitimou.gr"}
	if !reflect.DeepEqual(domains, expected) {
		t.Fatalf("domains = %v, want %v", domains, expected)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for duplicate registration")
		}
	}()
	Register(immoweltAt{})
}
