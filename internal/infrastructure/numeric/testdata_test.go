package numeric

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"camcalib/internal/domain/entity"
)

var (
	syntheticMatrix = entity.NewCameraMatrix(800, 780, 320, 240)
	syntheticSize   = image.Pt(640, 480)
)

type syntheticPose struct {
	rotation    entity.Vec3
	translation entity.Vec3
}

var syntheticPoses = []syntheticPose{
	{entity.Vec3{0.2, -0.1, 0.05}, entity.Vec3{-4, -2.5, 15}},
	{entity.Vec3{-0.25, 0.15, -0.1}, entity.Vec3{-3.5, -2, 16}},
	{entity.Vec3{0.1, 0.3, 0}, entity.Vec3{-4.5, -3, 14}},
	{entity.Vec3{-0.15, -0.25, 0.2}, entity.Vec3{-3.8, -2.2, 15.5}},
}

func boardPoints() []r3.Vector {
	pattern, err := entity.NewPatternGeometry(9, 6, 1)
	if err != nil {
		panic(err)
	}
	return pattern.Points()
}

// syntheticViews проецирует доску 9x6 в четыре позы.
func syntheticViews(dist []float64) ([][]r3.Vector, [][]r2.Point) {
	board := boardPoints()
	p := NewProjector()

	objectPoints := make([][]r3.Vector, 0, len(syntheticPoses))
	imagePoints := make([][]r2.Point, 0, len(syntheticPoses))
	for _, pose := range syntheticPoses {
		proj, err := p.Project(board, pose.rotation, pose.translation, syntheticMatrix, dist)
		if err != nil {
			panic(err)
		}
		objectPoints = append(objectPoints, board)
		imagePoints = append(imagePoints, proj)
	}
	return objectPoints, imagePoints
}
