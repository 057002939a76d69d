package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/foldersync/pkg/sync"
)

func TestPrintPlan(t *testing.T) {
	tests := []struct {
		name   string
		plan   sync.Plan
		expOut string
	}{
		{
			name: "InSync",
			plan: sync.Plan{InSync: true},
			expOut: "Source:  /source\n" +
				"Replica: /replica\n" +
				"\nThe replica is in sync.\n",
		},
		{
			name: "Changes",
			plan: sync.Plan{
				FoldersToCreate: []string{"docs"},
				FilesToCopy: []sync.PlannedCopy{
					{Path: "docs/readme.txt", Outcome: sync.ReplicaMissing},
					{Path: "a.txt", Outcome: sync.ContentDiffers},
				},
				FoldersToDelete: []string{"tmp"},
			},
			expOut: "Source:  /source\n" +
				"Replica: /replica\n" +
				"\n4 pending changes\n" +
				"\nFolders to create:\n" +
				"  docs\n" +
				"\nFiles to copy:\n" +
				"  docs/readme.txt (replica missing)\n" +
				"  a.txt (content differs)\n" +
				"\nFolders to delete:\n" +
				"  tmp\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			printPlan(&out, "/source", "/replica", test.plan)
			assert.Equal(t, test.expOut, out.String())
		})
	}
}
