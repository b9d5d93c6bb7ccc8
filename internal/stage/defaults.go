package stage

// Stage keys of the default fiscal report pipeline.
const (
	KeyInformationCheck = "1_informatiecheck"
	KeyComplexityCheck  = "2_complexiteitscheck"
	KeyGeneration       = "3_generatie"
	KeySources          = "4a_BronnenSpecialist"
	KeyTaxTechnical     = "4b_FiscaalTechnischeSpecialist"
	KeyScenarioGaps     = "4c_ScenarioGatenAnalist"
	KeyTranslator       = "4d_DeVertaler"
	KeyAdvocate         = "4e_DeAdvocaat"
	KeyClientPsychology = "4f_DeKlantpsycholoog"
	KeyFinalCheck       = "5_eindcontrole"
)

// DefaultStages returns the stage list of the standard fiscal report pipeline:
// intake gate, complexity scoring, draft generation, six specialist
// reviewers and a final check.
func DefaultStages() []Stage {
	reviewer := func(key, label string) Stage {
		return Stage{Key: key, Label: label, Role: RoleReviewer, Substeps: ReviewerSubsteps()}
	}
	return []Stage{
		{
			Key:   KeyInformationCheck,
			Label: "Informatiecheck",
			Role:  RoleGenerator,
			Gate:  true,
			Prompt: "Extract the structured case data from the input below and state whether the " +
				"information is complete as JSON {\"complete\": true|false, \"missing\": [...]}.\n\n{{.Input}}",
		},
		{
			Key:    KeyComplexityCheck,
			Label:  "Complexiteitscheck",
			Role:   RoleGenerator,
			Prompt: "Score the complexity of this case and list the fiscal topics involved.\n\n{{.Input}}",
		},
		{
			Key:    KeyGeneration,
			Label:  "Generatie",
			Role:   RoleGenerator,
			FanOut: true,
			Prompt: "Write the first concept report for this case.\n\n{{.Input}}",
		},
		reviewer(KeySources, "Bronnen Specialist"),
		reviewer(KeyTaxTechnical, "Fiscaal Technische Specialist"),
		reviewer(KeyScenarioGaps, "Scenario Gaten Analist"),
		reviewer(KeyTranslator, "De Vertaler"),
		reviewer(KeyAdvocate, "De Advocaat"),
		reviewer(KeyClientPsychology, "De Klantpsycholoog"),
		{
			Key:    KeyFinalCheck,
			Label:  "Eindcontrole",
			Role:   RoleProcessor,
			Final:  true,
			Prompt: "Perform the final consistency check of the concept report.\n\n{{.Input}}",
		},
	}
}

// Default returns the catalog of the standard fiscal report pipeline.
func Default() *Catalog {
	return MustNew(DefaultStages())
}
