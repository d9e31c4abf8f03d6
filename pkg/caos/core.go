package caos

// registerCore installs the built-in vocabulary. Registration order fixes
// the ordinals, so new entries go at the end of their family.
func registerCore(l *Language) {
	registerFlow(l)
	registerVars(l)
	registerAgents(l)
	registerStreams(l)
	registerNumbers(l)
	registerStrings(l)
}

func cmd(l *Language, name string, exec Handler, params ...Param) {
	l.MustRegister(KindCommand, Descriptor{Name: name, Params: params, Exec: exec})
}

func blockCmd(l *Language, name string, role Role, kind BlockKind, exec Handler, params ...Param) {
	l.MustRegister(KindCommand, Descriptor{
		Name:    name,
		Params:  params,
		Special: Special{Role: role, Block: kind},
		Exec:    exec,
	})
}

func produce(l *Language, kind Kind, name string, eval Producer, params ...Param) {
	l.MustRegister(kind, Descriptor{Name: name, Params: params, Eval: eval})
}
