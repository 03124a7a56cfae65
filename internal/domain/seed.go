package domain

import "time"

// SeedProperties returns a fresh copy of the demo catalog used in
// self-contained mode and as the public fallback. Callers own the result.
func SeedProperties() []Property {
	out := make([]Property, len(seedProperties))
	for i, p := range seedProperties {
		out[i] = p.Clone()
	}
	return out
}

// PublishedSeed returns the seed entries with IsPublished set.
func PublishedSeed() []Property {
	all := SeedProperties()
	out := all[:0]
	for _, p := range all {
		if p.IsPublished {
			out = append(out, p)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var seedProperties = []Property{
	{
		ID:             "ever-prime-karon",
		StatusCategory: Category2026,
		ProjectName:    "Ever Prime",
		Area:           "Karon",
		PropertyType:   PropertyTypeCondo,
		UnitTypes: []UnitType{
			{Name: "1-Zimmer-Apartment", SizeSqmFrom: 32, SizeSqmTo: 35, PriceFromTHB: 3946800, PriceFromEUR: 109000},
		},
		SizeSqmFrom:  32,
		SizeSqmTo:    35,
		PriceFromTHB: 3946800,
		PriceFromEUR: 109000,
		Ownership:    OwnershipLeasehold,
		Completion:   ptr("2026-12"),
		Highlights: []string{
			"Zentrum von Karon, fußläufig zum Strand",
			"Villa Market Supermarkt im Komplex",
			"Golfsimulator und Tennisplätze",
			"Möbelpaket inklusive",
			"Betreibermodell mit Mietpool verfügbar",
		},
		Transparency: &Transparency{
			CamPerSqm:     ptr(65.0),
			SinkingFund:   ptr(500.0),
			TransferFee:   "1,1% (Leasehold)",
			ManagementFee: "Im Mietpool enthalten",
			Notes:         "Möbelpaket im Kaufpreis enthalten",
		},
		OperatorModel: ptr("Professioneller Hotelbetreiber mit Mietpool-Option"),
		Docs: []DocRef{
			{Title: "Broschüre (EN)", URL: "#"},
			{Title: "Preisliste", URL: "#"},
		},
		Images: []string{
			"https://images.unsplash.com/photo-1582268611958-ebfd161ef9cf?w=800&q=80",
			"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&q=80",
			"https://images.unsplash.com/photo-1600607687939-ce8a6c25118c?w=800&q=80",
		},
		Description: "Ever Prime vereint städtischen Komfort mit Resort-Atmosphäre im Herzen von Karon.",
		IsPublished: true,
		Order:       1,
		CreatedAt:   day("2025-01-15"),
		UpdatedAt:   day("2026-01-01"),
	},
	{
		ID:             "trees-residence-bangtao",
		StatusCategory: Category2026,
		ProjectName:    "The Trees Residence",
		Area:           "Bang Tao",
		PropertyType:   PropertyTypeCondo,
		UnitTypes: []UnitType{
			{Name: "1-Zimmer-Apartment", SizeSqmFrom: 37, SizeSqmTo: 42, PriceFromTHB: 4026240, PriceFromEUR: 111000},
		},
		SizeSqmFrom:  37,
		SizeSqmTo:    42,
		PriceFromTHB: 4026240,
		PriceFromEUR: 111000,
		Ownership:    OwnershipLeasehold,
		Completion:   ptr("2027-03"),
		Highlights: []string{
			"Premium-Lage Bang Tao (Laguna Phuket Nachbarschaft)",
			"Ökologisches Resort-Konzept",
			"Hotellizenz für professionellen Betrieb",
			"Möbelpaket inklusive, bezugsfertig",
			"Ruhige Hanglage mit viel Grün",
		},
		Transparency: &Transparency{
			CamPerSqm:     ptr(70.0),
			SinkingFund:   ptr(550.0),
			TransferFee:   "1,1% (Leasehold)",
			ManagementFee: "Betreibervertrag separat",
		},
		OperatorModel: ptr("Hotelkonzept mit professionellem Management"),
		Docs: []DocRef{
			{Title: "Broschüre (EN)", URL: "#"},
			{Title: "Preisliste Zone A", URL: "#"},
		},
		Images: []string{
			"https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&q=80",
			"https://images.unsplash.com/photo-1600566753086-00f18fb6b3ea?w=800&q=80",
			"https://images.unsplash.com/photo-1600573472550-8090b5e0745e?w=800&q=80",
		},
		Description: "The Trees Residence ist ein Öko-Resort-Projekt in einer Premiumlage Phukets.",
		IsPublished: true,
		Order:       2,
		CreatedAt:   day("2025-02-01"),
		UpdatedAt:   day("2026-01-01"),
	},
	{
		ID:             "element-anocha-kamala",
		StatusCategory: Category2026,
		ProjectName:    "The Element by Anocha",
		Area:           "Kamala",
		PropertyType:   PropertyTypeCondo,
		UnitTypes: []UnitType{
			{Name: "Studio mit hohen Decken", SizeSqmFrom: 35, SizeSqmTo: 45, PriceFromTHB: 4629850, PriceFromEUR: 127000},
		},
		SizeSqmFrom:  35,
		SizeSqmTo:    45,
		PriceFromTHB: 4629850,
		PriceFromEUR: 127000,
		Ownership:    OwnershipLeasehold,
		Completion:   ptr("2026-12"),
		Highlights: []string{
			"Kamala \"Goldene Meile\" zwischen Patong und Surin",
			"3,75m hohe Decken für großzügiges Raumgefühl",
			"Sport- und Wellness-Fokus (Thai-Boxen, Tennis, Spa)",
			"Coworking-Bereich im Komplex",
		},
		Transparency: &Transparency{
			CamPerSqm:   ptr(75.0),
			SinkingFund: ptr(600.0),
			TransferFee: "1,1% (Leasehold)",
			Notes:       "Einheiten unter ca. €113,000* ausverkauft",
		},
		OperatorModel: ptr("Eigenverwaltung oder Agenturvermittlung möglich"),
		Docs: []DocRef{
			{Title: "Broschüre (DE)", URL: "#"},
			{Title: "Preisliste", URL: "#"},
		},
		Images: []string{
			"https://images.unsplash.com/photo-1600047509807-ba8f99d2cdde?w=800&q=80",
			"https://images.unsplash.com/photo-1600566753376-12c8ab7fb75b?w=800&q=80",
			"https://images.unsplash.com/photo-1600210492486-724fe5c67fb0?w=800&q=80",
		},
		Description: "The Element by Anocha richtet sich an gesundheitsbewusste Investoren und Urlauber.",
		IsPublished: true,
		Order:       3,
		CreatedAt:   day("2025-03-01"),
		UpdatedAt:   day("2026-01-01"),
	},
	{
		ID:             "demo-ready-rawai",
		StatusCategory: CategoryReady,
		ProjectName:    "Rawai Beachfront Residences",
		Area:           "Rawai",
		PropertyType:   PropertyTypeCondo,
		UnitTypes: []UnitType{
			{Name: "1-Zimmer-Apartment", SizeSqmFrom: 45, SizeSqmTo: 55, PriceFromTHB: 5500000, PriceFromEUR: 151000},
		},
		SizeSqmFrom:  45,
		SizeSqmTo:    55,
		PriceFromTHB: 5500000,
		PriceFromEUR: 151000,
		Ownership:    OwnershipFreehold,
		Highlights: []string{
			"Sofort verfügbar und bezugsfertig",
			"Freehold-Eigentum möglich",
			"Etabliertes Projekt mit Track-Record",
			"Strand fußläufig erreichbar",
			"Vermietungshistorie vorhanden",
		},
		Transparency: &Transparency{
			CamPerSqm:   ptr(60.0),
			SinkingFund: ptr(400.0),
			TransferFee: "6,3% (Freehold)",
			Notes:       "Mieteinnahmenhistorie auf Anfrage verfügbar",
		},
		OperatorModel: ptr("Bestehende Vermietungsagentur vor Ort"),
		Docs: []DocRef{
			{Title: "Exposé", URL: "#"},
		},
		Images: []string{
			"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&q=80",
			"https://images.unsplash.com/photo-1600607687939-ce8a6c25118c?w=800&q=80",
		},
		Description: "Fertiggestelltes Projekt mit bewährter Vermietungshistorie.",
		IsPublished: true,
		Order:       1,
		CreatedAt:   day("2025-06-01"),
		UpdatedAt:   day("2026-01-01"),
	},
	{
		ID:             "demo-2027-naiharn",
		StatusCategory: Category2027,
		ProjectName:    "Nai Harn Hillside Villas",
		Area:           "Nai Harn",
		PropertyType:   PropertyTypeVilla,
		UnitTypes: []UnitType{
			{Name: "Pool-Villa 2 Schlafzimmer", SizeSqmFrom: 150, SizeSqmTo: 200, PriceFromTHB: 12500000, PriceFromEUR: 344000},
		},
		SizeSqmFrom:  150,
		SizeSqmTo:    200,
		PriceFromTHB: 12500000,
		PriceFromEUR: 344000,
		Ownership:    OwnershipLeasehold,
		Completion:   ptr("2027-06"),
		Highlights: []string{
			"Exklusive Villenlage mit Meerblick",
			"Privater Pool pro Einheit",
			"Flexible Ratenzahlung über Bauzeit",
			"Nai Harn Beach in 5 Minuten",
		},
		Transparency: &Transparency{
			CamPerSqm:   ptr(50.0),
			SinkingFund: ptr(1000.0),
			TransferFee: "1,1% (Leasehold)",
			Notes:       "Zahlungsplan: 30/30/40 über Bauzeit",
		},
		OperatorModel: ptr("Villa-Management-Service optional"),
		Docs: []DocRef{
			{Title: "Masterplan", URL: "#"},
			{Title: "Zahlungsplan", URL: "#"},
		},
		Images: []string{
			"https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&q=80",
			"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&q=80",
		},
		Description: "Villen-Projekt für Investoren mit längerem Horizont.",
		IsPublished: true,
		Order:       1,
		CreatedAt:   day("2025-06-01"),
		UpdatedAt:   day("2026-01-01"),
	},
}
