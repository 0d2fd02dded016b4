package knowledge

// defaultCorpus returns the built-in domain documents covering school
// enrollment, district placement, and education levels.
func defaultCorpus() []Document {
	return []Document{
		{
			ID: "inschrijven-procedure",
			Content: "Inschrijven voor een middelbare school gaat via de centrale " +
				"aanmeldprocedure van de gemeente. Je meldt je aan in de aanmeldperiode " +
				"(meestal februari-maart) met het schooladvies van de basisschool. Je geeft " +
				"een voorkeurslijst van scholen op; de plaatsing volgt via loting en " +
				"voorrangsregels. Na plaatsing schrijft de school je definitief in en vraagt " +
				"om het onderwijskundig rapport van de basisschool.",
			Entities: []string{"inschrijven", "aanmelden", "aanmeldprocedure", "voorkeurslijst", "loting", "schooladvies"},
		},
		{
			ID: "wijk-voorrang",
			Content: "Sommige scholen hanteren voorrangsregels per wijk of stadsdeel. " +
				"Woon je in de wijk van de school, dan krijg je bij de loting voorrang op " +
				"leerlingen van buiten de wijk. Broertjes en zusjes van zittende leerlingen " +
				"hebben doorgaans ook voorrang. De precieze voorrangsregels staan in het " +
				"plaatsingsreglement van de gemeente en verschillen per stad.",
			Entities: []string{"wijk", "stadsdeel", "voorrang", "voorrangsregels", "plaatsing", "buurt"},
		},
		{
			ID: "onderwijsniveaus",
			Content: "Het voortgezet onderwijs kent drie hoofdniveaus: vmbo (4 jaar, " +
				"voorbereidend middelbaar beroepsonderwijs, met de leerwegen basis, kader, " +
				"gemengd en theoretisch), havo (5 jaar, hoger algemeen voortgezet onderwijs) " +
				"en vwo (6 jaar, voorbereidend wetenschappelijk onderwijs, als atheneum of " +
				"gymnasium). Het schooladvies van groep 8 bepaalt op welk niveau je start; " +
				"brede brugklassen stellen de definitieve keuze een of twee jaar uit.",
			Entities: []string{"vmbo", "havo", "vwo", "niveau", "onderwijsniveau", "brugklas", "gymnasium", "atheneum", "schooladvies"},
		},
		{
			ID: "open-dagen",
			Content: "Scholen organiseren open dagen tussen november en februari. Op een " +
				"open dag bekijk je het gebouw, spreek je docenten en leerlingen en krijg je " +
				"informatie over profielen, begeleiding en extra aanbod zoals tweetalig " +
				"onderwijs of technasium. Veel gemeenten publiceren een scholenwijzer met " +
				"alle data op een rij. Aanmelden voor een open dag is soms verplicht.",
			Entities: []string{"open dag", "open dagen", "scholenwijzer", "tweetalig", "technasium", "profielen"},
		},
		{
			ID: "zorgplicht-passend",
			Content: "Heeft een leerling extra ondersteuning nodig, dan geldt de " +
				"zorgplicht: de school waar je je aanmeldt moet een passende plek bieden, " +
				"op de eigen school of op een andere school binnen het " +
				"samenwerkingsverband. Meld extra ondersteuningsbehoeften daarom al bij de " +
				"aanmelding, zodat de school kan beoordelen welke begeleiding mogelijk is.",
			Entities: []string{"zorgplicht", "passend onderwijs", "ondersteuning", "samenwerkingsverband", "begeleiding"},
		},
	}
}
