// Package chem is a small closed-shell electronic-structure driver.
//
// It evaluates one- and two-electron integrals over contracted Cartesian
// Gaussians (McMurchie-Davidson scheme), runs a restricted Hartree-Fock SCF
// accelerated with DIIS, transforms the integrals to the molecular-orbital
// basis and optionally restricts them to an active space. The result is a
// Problem: everything a second-quantized Hamiltonian needs, plus the scalar
// nuclear repulsion energy.
//
// All quantities are in atomic units (hartree, bohr) unless stated otherwise.
package chem
