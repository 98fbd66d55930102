package docker

import (
	"testing"

	"github.com/docker/docker/api/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestToContainer(t *testing.T) {
	Convey("Given a container from the list endpoint", t, func() {
		c := types.Container{
			ID:     "4f1c2a9b8e7d6c5b4a39",
			Names:  []string{"/db1"},
			Image:  "mysql:8.0",
			Labels: map[string]string{"dbwarden.enable": "true"},
		}

		Convey("The leading slash is dropped from the name", func() {
			got := toContainer(c)

			So(got.Name, ShouldEqual, "db1")
			So(got.ID, ShouldEqual, c.ID)
			So(got.Image, ShouldEqual, "mysql:8.0")
			So(got.Labels["dbwarden.enable"], ShouldEqual, "true")
		})

		Convey("A container without names falls back to its id", func() {
			c.Names = nil
			So(toContainer(c).Name, ShouldEqual, c.ID)
		})
	})
}

func TestImageRefs(t *testing.T) {
	Convey("The started reference comes first without duplicates", t, func() {
		refs := imageRefs("sha256:abc", []string{"registry.local/db:1", "postgres:16"})
		So(refs, ShouldResemble, []string{"sha256:abc", "registry.local/db:1", "postgres:16"})

		refs = imageRefs("postgres:16", []string{"postgres:16", "postgres:latest"})
		So(refs, ShouldResemble, []string{"postgres:16", "postgres:latest"})
	})
}
