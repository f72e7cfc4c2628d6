package main

import "testing"

func TestCollectionsCmd_Subcommands(t *testing.T) {
	want := []string{"list", "create", "delete", "info"}

	for _, name := range want {
		found := false
		for _, cmd := range collectionsCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("collections %s subcommand not found", name)
		}
	}
}

func TestCollectionsCreateCmd_Flags(t *testing.T) {
	if collectionsCreateCmd.Flags().Lookup("dimension") == nil {
		t.Error("collections create should have --dimension flag")
	}
	if collectionsCreateCmd.Flags().Lookup("metric") == nil {
		t.Error("collections create should have --metric flag")
	}
}

func TestCollectionsDeleteCmd_RequiresForce(t *testing.T) {
	if collectionsDeleteCmd.Flags().Lookup("force") == nil {
		t.Fatal("collections delete should have --force flag")
	}

	colForce = false
	err := runCollectionsDelete(collectionsDeleteCmd, []string{"documents"})
	if err == nil {
		t.Fatal("delete without --force should refuse")
	}
}
