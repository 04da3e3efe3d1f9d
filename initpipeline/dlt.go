package initpipeline

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/spatial"
)

// SolveDLT implements the Direct Linear Transform for ≥4
// correspondences, simplified by using the viewpoint's already-known
// intrinsics (K⁻¹ applied directly) instead of a full RQ decomposition of
// the recovered projection matrix: it solves for the 3x4 projection
// matrix up to scale via the null space of the standard cross-product
// system (linalg.SymmetricEigen on AᵀA), removes K, and orthogonalises
// the remaining rotation block.
func SolveDLT(corrs []Correspondence, kInv linalg.Mat3, rng *rand.Rand) (spatial.Pose, bool) {
	if len(corrs) < 4 {
		return spatial.Pose{}, false
	}

	rows := make([][]float64, 0, 2*len(corrs))
	for _, c := range corrs {
		x, y, z := c.World[0], c.World[1], c.World[2]
		u, v := c.Pixel[0], c.Pixel[1]
		rows = append(rows, []float64{
			-x, -y, -z, -1, 0, 0, 0, 0, u * x, u * y, u * z, u,
		})
		rows = append(rows, []float64{
			0, 0, 0, 0, -x, -y, -z, -1, v * x, v * y, v * z, v,
		})
	}

	ata := make([][]float64, 12)
	for i := range ata {
		ata[i] = make([]float64, 12)
	}
	for _, row := range rows {
		for i := 0; i < 12; i++ {
			if row[i] == 0 {
				continue
			}
			for j := 0; j < 12; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}

	_, vecs := linalg.SymmetricEigen(ata, rng)
	p := vecs // 12x12, column 0 is the smallest-eigenvalue null vector

	var pMat [3][4]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			pMat[row][col] = p[row*4+col][0]
		}
	}

	mPrime := linalg.Mat3{
		{pMat[0][0], pMat[0][1], pMat[0][2]},
		{pMat[1][0], pMat[1][1], pMat[1][2]},
		{pMat[2][0], pMat[2][1], pMat[2][2]},
	}
	tPrime := [3]float64{pMat[0][3], pMat[1][3], pMat[2][3]}

	m := linalg.Mul3x3(kInv, mPrime)
	t := linalg.MulVec3(kInv, tPrime)

	scale := (rowNorm(m, 0) + rowNorm(m, 1) + rowNorm(m, 2)) / 3
	if scale < 1e-12 {
		return spatial.Pose{}, false
	}
	inv := 1 / scale
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row][col] *= inv
		}
		t[row] *= inv
	}

	// The DLT scale is only known up to sign; flip if it placed the
	// correspondences predominantly behind the camera.
	behind := 0
	for _, c := range corrs {
		z := m[2][0]*c.World[0] + m[2][1]*c.World[1] + m[2][2]*c.World[2] + t[2]
		if z < 0 {
			behind++
		}
	}
	if behind > len(corrs)/2 {
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				m[row][col] = -m[row][col]
			}
			t[row] = -t[row]
		}
	}

	r := linalg.OrthogonaliseRotation(m)

	rt := linalg.MulVec3(linalg.Transpose3x3(r), t)
	camPos := mgl64.Vec3{-rt[0], -rt[1], -rt[2]}

	quat := spatial.QuaternionFromRotationMatrix(
		mgl64.Vec3{r[0][0], r[0][1], r[0][2]},
		mgl64.Vec3{r[1][0], r[1][1], r[1][2]},
		mgl64.Vec3{r[2][0], r[2][1], r[2][2]},
	)
	return spatial.Pose{Position: camPos, Rotation: quat}, true
}

func rowNorm(m linalg.Mat3, row int) float64 {
	return math.Sqrt(m[row][0]*m[row][0] + m[row][1]*m[row][1] + m[row][2]*m[row][2])
}

// flipRotationSign negates the two rows that change a rotation's facing
// while keeping it in SO(3) (a 180° rotation about the remaining axis).
func flipRotationSign(r linalg.Mat3) linalg.Mat3 {
	var out linalg.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if row == 2 {
				out[row][col] = r[row][col]
			} else {
				out[row][col] = -r[row][col]
			}
		}
	}
	return out
}
