package normalize

// ECFlowRules maps the ECFLOW suite/forcing/time/output namespaces onto
// the legacy ASGS parameter names.
func ECFlowRules() Rules {
	return Rules{
		Aliases: []AliasRule{
			{Source: "suite.physical_location", Targets: []string{"physical_location", "monitoring.rmqmessaging.locationname"}},
			{Source: "suite.instance_name", Targets: []string{"instance_name", "instancename"}},
			{Source: "suite.uid", Targets: []string{"uid"}},
			{Source: "suite.adcirc.grid", Targets: []string{"ADCIRCgrid", "adcirc.gridname"}},
			{Source: "time.currentdate", Targets: []string{"currentdate"}},
			{Source: "time.currentcycle", Targets: []string{"currentcycle"}},
			{Source: "forcing.advisory", Targets: []string{"advisory"}},
			{Source: "forcing.ensemblename", Targets: []string{"asgs.enstorm", "enstorm"}},
			{Source: "forcing.stormname", Targets: []string{"stormname", "forcing.tropicalcyclone.stormname"}},
			{Source: "forcing.stormnumber", Targets: []string{"storm_number", "forcing.tropicalcyclone.stormnumber"}},
			{Source: "forcing.vortexmodel", Targets: []string{"forcing.tropicalcyclone.vortexmodel"}},
			{Source: "forcing.waves", Targets: []string{"config.coupling.waves"}},
			{Source: "output.downloadurl", Targets: []string{"downloadurl"}},
		},
		Reformats: []Reformat{
			{Key: "uid", Kind: StringCoerce},
			{Key: "advisory", Kind: IntegerCoerce},
			{Key: "currentdate", Kind: IntegerCoerce},
			{Key: "currentcycle", Kind: IntegerCoerce},
			{Key: "enstorm", Kind: Lowercase},
			{Key: "asgs.enstorm", Kind: Lowercase},
			{Key: "stormname", Kind: Uppercase},
			{Key: "forcing.tropicalcyclone.stormname", Kind: Uppercase},
			{Key: "storm_number", Kind: DigitsPad2},
			{Key: "forcing.tropicalcyclone.stormnumber", Kind: DigitsPad2},
			{Key: "forcing.tropicalcyclone.vortexmodel", Kind: Uppercase},
			{Key: "config.coupling.waves", Kind: IntegerCoerce},
		},
	}
}

// HECRASRules maps the HEC/RAS dialect. It carries a smaller namespace
// than ECFLOW; only identity and storm fields need remapping.
func HECRASRules() Rules {
	return Rules{
		Aliases: []AliasRule{
			{Source: "suite.physical_location", Targets: []string{"physical_location"}},
			{Source: "suite.instance_name", Targets: []string{"instance_name", "instancename"}},
			{Source: "suite.uid", Targets: []string{"uid"}},
			{Source: "forcing.advisory", Targets: []string{"advisory"}},
			{Source: "forcing.ensemblename", Targets: []string{"asgs.enstorm", "enstorm"}},
			{Source: "forcing.stormname", Targets: []string{"stormname"}},
			{Source: "forcing.stormnumber", Targets: []string{"storm_number"}},
			{Source: "output.downloadurl", Targets: []string{"downloadurl"}},
		},
		Reformats: []Reformat{
			{Key: "uid", Kind: StringCoerce},
			{Key: "advisory", Kind: IntegerCoerce},
			{Key: "enstorm", Kind: Lowercase},
			{Key: "asgs.enstorm", Kind: Lowercase},
			{Key: "stormname", Kind: Uppercase},
			{Key: "storm_number", Kind: DigitsPad2},
		},
	}
}
